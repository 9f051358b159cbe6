package pedometer

// window is a sliding-window mean over the ring. Its contents are the
// samples themselves, so only the running sum is kept.
type window struct {
	bits int
	size int
	sum  int
}

// load rebuilds the window from the size samples immediately preceding pos.
func (w *window) load(r *Ring, pos, bits int) {
	w.bits = bits
	w.size = 1 << bits
	w.sum = 0
	for k := w.size; k > 0; k-- {
		w.sum += int(r.At(pos - k))
	}
}

// slide moves the window forward onto the sample at pos and returns the
// sample's deviation from the window mean.
func (w *window) slide(r *Ring, pos int) int {
	s := int(r.At(pos))
	w.sum -= int(r.At(pos - w.size))
	w.sum += s
	return s - w.sum>>w.bits
}

// mean returns the current window mean.
func (w *window) mean() int {
	return w.sum >> w.bits
}

package pedometer

// Ring is a fixed-capacity circular store of magnitude samples.
//
// Samples between start and end are unconsumed. The capacity is always a
// power of two so every index can be reduced with a mask.
type Ring struct {
	data     []uint8
	mask     int
	start    int
	end      int
	full     bool
	written  uint64
	overruns uint64
}

// NewRing creates a Ring holding at least capacity samples. The capacity is
// rounded up to the next power of two.
func NewRing(capacity int) *Ring {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Ring{
		data: make([]uint8, n),
		mask: n - 1,
	}
}

// Cap returns the number of slots in the ring.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Append writes a sample at end. When the ring is already full the oldest
// unconsumed sample is overwritten.
func (r *Ring) Append(v uint8) {
	if r.full {
		r.start = (r.start + 1) & r.mask
		r.overruns++
	}
	r.data[r.end] = v
	r.end = (r.end + 1) & r.mask
	r.written++
	if r.end == r.start {
		r.full = true
	}
}

// Distance returns the number of samples from i to j moving forward through
// the ring.
func (r *Ring) Distance(i, j int) int {
	return (j - i) & r.mask
}

// Available returns the number of unconsumed samples.
func (r *Ring) Available() int {
	if r.full {
		return len(r.data)
	}
	return r.Distance(r.start, r.end)
}

// Consume marks every available sample as processed.
func (r *Ring) Consume() {
	r.start = r.end
	r.full = false
}

// At returns the sample at circular position i. Negative positions count
// back from the end of the array.
func (r *Ring) At(i int) uint8 {
	return r.data[i&r.mask]
}

// Start returns the position of the oldest unconsumed sample.
func (r *Ring) Start() int { return r.start }

// End returns the position the next sample will be written to.
func (r *Ring) End() int { return r.end }

// Written returns the number of samples appended since the last reset.
func (r *Ring) Written() uint64 { return r.written }

// Overruns returns how many unconsumed samples were overwritten.
func (r *Ring) Overruns() uint64 { return r.overruns }

// Reset empties the ring and zeroes its history.
func (r *Ring) Reset() {
	clear(r.data)
	r.start = 0
	r.end = 0
	r.full = false
	r.written = 0
	r.overruns = 0
}

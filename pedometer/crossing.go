package pedometer

// Pulse is a contiguous run of high-pass samples above the threshold,
// spanning sequence numbers [Start, End).
type Pulse struct {
	Start uint64
	End   uint64
}

// Duration returns the pulse length in samples.
func (p Pulse) Duration() uint64 {
	return p.End - p.Start
}

// crossing is a two-state hysteresis detector on the high-pass signal.
type crossing struct {
	active bool
	start  uint64
}

// update feeds the high-pass value of sample seq. It reports a pulse when the
// signal falls back below the threshold. Values equal to the threshold never
// change state.
func (c *crossing) update(seq uint64, hp, threshold int) (Pulse, bool) {
	switch {
	case !c.active && hp > threshold:
		c.active = true
		c.start = seq
	case c.active && hp < threshold:
		c.active = false
		return Pulse{Start: c.start, End: seq}, true
	}
	return Pulse{}, false
}

func (c *crossing) reset() {
	*c = crossing{}
}

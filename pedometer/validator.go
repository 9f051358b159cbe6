package pedometer

// Verdict is the outcome of validating a candidate pulse.
type Verdict int

const (
	Accepted Verdict = iota
	TooLong          // pulse lasted longer than MaxDuration
	TooSoon          // pulse started within MinInterval of the last step
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case TooLong:
		return "too long"
	case TooSoon:
		return "too soon"
	default:
		return "unknown"
	}
}

// validator accepts or rejects pulses by duration and spacing.
type validator struct {
	hasLast bool
	last    uint64
}

func (v *validator) check(p Pulse, cfg Config) Verdict {
	if p.Duration() > uint64(cfg.MaxDuration) {
		return TooLong
	}
	if v.hasLast && p.Start-v.last < uint64(cfg.MinInterval) {
		return TooSoon
	}
	v.hasLast = true
	v.last = p.Start
	return Accepted
}

func (v *validator) reset() {
	*v = validator{}
}

package pedometer

import (
	"fmt"
	"log/slog"
	"time"
)

// DefaultCapacity is the default ring size in samples.
const DefaultCapacity = 256

// maxWindow is the largest filter window in samples.
const maxWindow = 1 << 6

// MinCapacity is the smallest ring WithCapacity will create.
const MinCapacity = 2 * maxWindow

// Source delivers batches of raw samples, typically a sensor FIFO.
type Source interface {
	// Drain appends every pending sample to buf and returns the result.
	Drain(buf []Sample) []Sample
	// Clear acknowledges the drained samples.
	Clear()
}

// Step describes an accepted step.
type Step struct {
	Seq      uint64 // sequence number of the first sample above threshold
	Duration uint64
	Total    uint64
}

// Trace is the filter state for one processed sample.
type Trace struct {
	Seq       uint64
	Magnitude uint8
	Mean      int
	HighPass  int
	Active    bool
}

// Stats counts pipeline outcomes since the last reset.
type Stats struct {
	Passes   uint64
	Accepted uint64
	TooLong  uint64
	TooSoon  uint64
	Overruns uint64
}

// Engine is the tick-driven step detector. It is not safe for concurrent
// use; callers own it from a single loop.
type Engine struct {
	ring  *Ring
	cfg   Config
	win   window
	cross crossing
	valid validator
	steps uint64
	stats Stats

	passEvery int
	ticks     int
	day       int
	batch     []Sample

	log      *slog.Logger
	onStep   func(Step)
	onTrace  func(Trace)
	overruns uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapacity sets the ring size. Sizes below MinCapacity are raised to it.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		n = max(n, MinCapacity)
		e.ring = NewRing(n)
	}
}

// WithConfig sets the initial detection parameters. Invalid configs are
// ignored in favour of the defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.Validate() == nil {
			e.cfg = cfg
		}
	}
}

// WithPassEvery runs a detection pass every n ticks instead of every tick.
func WithPassEvery(n int) Option {
	return func(e *Engine) {
		e.passEvery = max(1, n)
	}
}

// WithLogger sets the logger used for step decisions and resets.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStepHook registers fn to be called for every accepted step.
func WithStepHook(fn func(Step)) Option {
	return func(e *Engine) { e.onStep = fn }
}

// WithTrace registers fn to be called for every filtered sample.
func WithTrace(fn func(Trace)) Option {
	return func(e *Engine) { e.onTrace = fn }
}

// New creates an Engine with default parameters.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:       DefaultConfig(),
		passEvery: 1,
		day:       -1,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(e)
	}
	if e.ring == nil {
		e.ring = NewRing(DefaultCapacity)
	}
	return e
}

// Steps returns the step count for the current day.
func (e *Engine) Steps() uint64 { return e.steps }

// Config returns the current detection parameters.
func (e *Engine) Config() Config { return e.cfg }

// Stats returns pipeline counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Overruns = e.ring.Overruns()
	return s
}

// Ring exposes the sample buffer for inspection.
func (e *Engine) Ring() *Ring { return e.ring }

// SetConfig replaces the detection parameters.
func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	e.cfg = cfg
	return nil
}

// UpdateConfig sets a single field.
func (e *Engine) UpdateConfig(f Field, v int) error {
	cfg, err := e.cfg.Set(f, v)
	if err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// AdvanceConfig steps a single field forward with wraparound and returns
// the new value.
func (e *Engine) AdvanceConfig(f Field) int {
	e.cfg = e.cfg.Advance(f)
	return e.cfg.Get(f)
}

// RetreatConfig steps a single field backward with wraparound and returns
// the new value.
func (e *Engine) RetreatConfig(f Field) int {
	e.cfg = e.cfg.Retreat(f)
	return e.cfg.Get(f)
}

// Reset clears the counter, buffered samples and detection state.
func (e *Engine) Reset() {
	e.ring.Reset()
	e.cross.reset()
	e.valid.reset()
	e.steps = 0
	e.stats = Stats{}
	e.overruns = 0
	e.ticks = 0
}

// Ingest converts a batch to magnitudes and appends it to the ring. A pass
// runs first whenever Available() has reached Cap()-maxWindow, leaving the
// window's history behind start intact. It returns the steps those passes
// added.
func (e *Engine) Ingest(batch []Sample) int {
	added := 0
	limit := e.ring.Cap() - maxWindow
	for _, s := range batch {
		if e.ring.Available() >= limit {
			added += e.Detect()
		}
		e.ring.Append(Magnitude(s))
	}
	if ov := e.ring.Overruns(); ov != e.overruns {
		e.log.Warn("sample ring overrun", "lost", ov-e.overruns, "capacity", e.ring.Cap())
		e.overruns = ov
	}
	return added
}

// Tick runs one scheduler tick: midnight reset, drain, and a detection pass
// when one is due. src may be nil. It returns the steps added.
func (e *Engine) Tick(now time.Time, src Source) int {
	y, m, d := now.Date()
	day := y*10000 + int(m)*100 + d
	if e.day >= 0 && day != e.day {
		e.log.Info("new day, resetting step counter", "steps", e.steps)
		e.Reset()
	}
	e.day = day

	added := 0
	if src != nil {
		e.batch = src.Drain(e.batch[:0])
		src.Clear()
		added = e.Ingest(e.batch)
	}

	e.ticks++
	if e.ticks%e.passEvery != 0 && e.ring.Available() < e.ring.Cap()/2 {
		return added
	}
	return added + e.Detect()
}

// Detect runs one detection pass over every available sample and consumes
// them. It returns the steps added.
func (e *Engine) Detect() int {
	n := e.ring.Available()
	if n == 0 {
		return 0
	}
	cfg := e.cfg
	e.stats.Passes++

	start := e.ring.Start()
	e.win.load(e.ring, start, cfg.WindowBits)
	w := uint64(e.win.size)
	seq := e.ring.Written() - uint64(n)

	added := 0
	for k := 0; k < n; k, seq = k+1, seq+1 {
		pos := start + k
		hp := e.win.slide(e.ring, pos)

		// Window still holds samples from before the last reset.
		if seq+1 < w {
			continue
		}

		p, ok := e.cross.update(seq, hp, cfg.Threshold)
		if e.onTrace != nil {
			e.onTrace(Trace{
				Seq:       seq,
				Magnitude: e.ring.At(pos),
				Mean:      e.win.mean(),
				HighPass:  hp,
				Active:    e.cross.active,
			})
		}
		if !ok {
			continue
		}

		switch v := e.valid.check(p, cfg); v {
		case Accepted:
			e.steps++
			e.stats.Accepted++
			added++
			e.log.Debug("step detected", "seq", p.Start, "duration", p.Duration(), "total", e.steps)
			if e.onStep != nil {
				e.onStep(Step{Seq: p.Start, Duration: p.Duration(), Total: e.steps})
			}
		case TooLong:
			e.stats.TooLong++
			e.log.Debug("step too long", "seq", p.Start, "duration", p.Duration(), "max", cfg.MaxDuration)
		case TooSoon:
			e.stats.TooSoon++
			e.log.Debug("step too short", "seq", p.Start, "since", p.Start-e.valid.last, "min", cfg.MinInterval)
		}
	}

	e.ring.Consume()
	return added
}

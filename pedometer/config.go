package pedometer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown config field")
	ErrOutOfRange   = errors.New("value out of range")
)

// Config holds the detection parameters. Durations and intervals are in
// samples.
type Config struct {
	Threshold   int `yaml:"threshold"`
	WindowBits  int `yaml:"window_bits"`
	MaxDuration int `yaml:"max_duration"`
	MinInterval int `yaml:"min_interval"`
}

// Field identifies one tunable Config parameter. Fields double as settings
// pages and are cycled in declaration order.
type Field int

const (
	FieldThreshold Field = iota
	FieldWindowBits
	FieldMaxDuration
	FieldMinInterval

	NumFields = 4
)

// Bounds is the inclusive range and increment of a field.
type Bounds struct {
	Min, Max, Step int
}

var fieldBounds = [NumFields]Bounds{
	FieldThreshold:   {Min: 2, Max: 40, Step: 2},
	FieldWindowBits:  {Min: 1, Max: 6, Step: 1},
	FieldMaxDuration: {Min: 1, Max: 40, Step: 1},
	FieldMinInterval: {Min: 0, Max: 20, Step: 1},
}

var fieldNames = [NumFields]string{
	FieldThreshold:   "threshold",
	FieldWindowBits:  "window_bits",
	FieldMaxDuration: "max_duration",
	FieldMinInterval: "min_interval",
}

// DefaultConfig returns the parameters tuned for 25 Hz wrist data.
func DefaultConfig() Config {
	return Config{
		Threshold:   12,
		WindowBits:  4,
		MaxDuration: 20,
		MinInterval: 10,
	}
}

func (f Field) valid() bool {
	return f >= 0 && f < NumFields
}

func (f Field) String() string {
	if !f.valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Bounds returns the range of f. It returns the zero Bounds for an unknown
// field.
func (f Field) Bounds() Bounds {
	if !f.valid() {
		return Bounds{}
	}
	return fieldBounds[f]
}

// Next returns the following settings page, wrapping after the last field.
func (f Field) Next() Field {
	return (f + 1) % NumFields
}

// ParseField resolves a field by name. Dashes are accepted in place of
// underscores.
func ParseField(s string) (Field, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for f, n := range fieldNames {
		if n == name {
			return Field(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Fields returns every field in settings page order.
func Fields() []Field {
	return []Field{FieldThreshold, FieldWindowBits, FieldMaxDuration, FieldMinInterval}
}

// Window returns the filter window length in samples.
func (c Config) Window() int {
	return 1 << c.WindowBits
}

// Get returns the value of f.
func (c Config) Get(f Field) int {
	switch f {
	case FieldThreshold:
		return c.Threshold
	case FieldWindowBits:
		return c.WindowBits
	case FieldMaxDuration:
		return c.MaxDuration
	case FieldMinInterval:
		return c.MinInterval
	}
	return 0
}

// Set returns a copy of c with f set to v.
func (c Config) Set(f Field, v int) (Config, error) {
	if !f.valid() {
		return c, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	b := fieldBounds[f]
	if v < b.Min || v > b.Max {
		return c, fmt.Errorf("%s=%d: %w [%d, %d]", f, v, ErrOutOfRange, b.Min, b.Max)
	}
	switch f {
	case FieldThreshold:
		c.Threshold = v
	case FieldWindowBits:
		c.WindowBits = v
	case FieldMaxDuration:
		c.MaxDuration = v
	case FieldMinInterval:
		c.MinInterval = v
	}
	return c, nil
}

// Advance returns a copy of c with f increased by one step. Past the upper
// bound the value wraps to the lower bound.
func (c Config) Advance(f Field) Config {
	if !f.valid() {
		return c
	}
	b := fieldBounds[f]
	v := c.Get(f) + b.Step
	if v > b.Max || v < b.Min {
		v = b.Min
	}
	c, _ = c.Set(f, v)
	return c
}

// Retreat returns a copy of c with f decreased by one step. Below the lower
// bound the value wraps to the upper bound.
func (c Config) Retreat(f Field) Config {
	if !f.valid() {
		return c
	}
	b := fieldBounds[f]
	v := c.Get(f) - b.Step
	if v < b.Min || v > b.Max {
		v = b.Max
	}
	c, _ = c.Set(f, v)
	return c
}

// Validate checks every field against its bounds.
func (c Config) Validate() error {
	var errs []error
	for _, f := range Fields() {
		if _, err := c.Set(f, c.Get(f)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package face implements the counter and settings pages of the step counter
// as a button-driven state machine over a pedometer.Engine.
package face

import (
	"fmt"

	"github.com/taigrr/stepcounter/pedometer"
)

// Button is a user input event.
type Button int

const (
	// Enter opens the settings pages from the counter page.
	Enter Button = iota
	// Next moves to the next settings page.
	Next
	// Advance increases the current setting, wrapping at its maximum.
	Advance
	// Retreat decreases the current setting, wrapping at its minimum.
	Retreat
	// Exit leaves the settings pages and resets the counter.
	Exit
)

func (b Button) String() string {
	switch b {
	case Enter:
		return "enter"
	case Next:
		return "next"
	case Advance:
		return "advance"
	case Retreat:
		return "retreat"
	case Exit:
		return "exit"
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// Face routes button presses to the engine.
type Face struct {
	eng      *pedometer.Engine
	settings bool
	field    pedometer.Field
	beep     func()
}

// Option configures a Face.
type Option func(*Face)

// WithBeep sets the feedback played on page changes.
func WithBeep(fn func()) Option {
	return func(f *Face) { f.beep = fn }
}

// New creates a Face showing the counter page.
func New(eng *pedometer.Engine, opts ...Option) *Face {
	f := &Face{eng: eng, beep: func() {}}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Settings reports whether a settings page is shown.
func (f *Face) Settings() bool { return f.settings }

// Field returns the setting on the current settings page.
func (f *Face) Field() pedometer.Field { return f.field }

// Page returns the 1-based settings page number, or 0 on the counter page.
func (f *Face) Page() int {
	if !f.settings {
		return 0
	}
	return int(f.field) + 1
}

// Press handles b and reports whether it had any effect.
func (f *Face) Press(b Button) bool {
	if !f.settings {
		if b != Enter {
			return false
		}
		f.settings = true
		f.field = pedometer.FieldThreshold
		f.beep()
		return true
	}

	switch b {
	case Next:
		f.field = f.field.Next()
		f.beep()
	case Advance:
		f.eng.AdvanceConfig(f.field)
	case Retreat:
		f.eng.RetreatConfig(f.field)
	case Exit:
		f.eng.Reset()
		f.settings = false
		f.beep()
	default:
		return false
	}
	return true
}

// Package chime plays short buzzer-style tones through the default audio
// device.
package chime

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"
)

// Notes used for feedback, in Hz.
const (
	NoteC7 = 2093.0 // settings and step feedback
	NoteG7 = 3136.0 // goal reached
)

const sampleRate = beep.SampleRate(44100)

// Player plays tones. The speaker is initialised on first use.
type Player struct {
	mu     sync.Mutex
	ready  bool
	volume float64
}

// New creates a Player. Volume is a base-2 exponent relative to full scale,
// so -1 halves the amplitude.
func New(volume float64) *Player {
	return &Player{volume: volume}
}

func (p *Player) init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/20)); err != nil {
		return fmt.Errorf("initialising speaker: %w", err)
	}
	p.ready = true
	return nil
}

// Beep plays a tone of the given frequency and length without blocking.
func (p *Player) Beep(freq float64, d time.Duration) error {
	if err := p.init(); err != nil {
		return err
	}
	tone, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return fmt.Errorf("tone %.0f Hz: %w", freq, err)
	}
	speaker.Play(&effects.Volume{
		Streamer: beep.Take(sampleRate.N(d), tone),
		Base:     2,
		Volume:   p.volume,
	})
	return nil
}

// Step plays the short per-step click.
func (p *Player) Step() error {
	return p.Beep(NoteC7, 50*time.Millisecond)
}

// Goal plays the longer milestone tone.
func (p *Player) Goal() error {
	return p.Beep(NoteG7, 300*time.Millisecond)
}

// Close stops playback and releases the audio device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		speaker.Close()
		p.ready = false
	}
}

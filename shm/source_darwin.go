//go:build darwin

package shm

import (
	"log/slog"

	"github.com/taigrr/stepcounter/pedometer"
)

// Source drains a sample ring as a pedometer.Source.
type Source struct {
	ring    *RingBuffer
	shift   uint
	max     int
	last    uint64
	pending uint64
	log     *slog.Logger
}

// NewSource reads ring from its current end, shifting raw counts right by
// shift bits. At most maxBatch samples are delivered per Drain; the newest
// are kept when more are pending.
func NewSource(ring *RingBuffer, shift uint, maxBatch int, log *slog.Logger) *Source {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Source{
		ring:  ring,
		shift: shift,
		max:   maxBatch,
		last:  ring.Total(),
		log:   log,
	}
}

// Drain appends every sample written since the previous Clear.
func (s *Source) Drain(buf []pedometer.Sample) []pedometer.Sample {
	if s.ring.Total() < s.last {
		s.log.Warn("sample producer restarted")
		s.last = 0
	}
	n := len(buf)
	buf, total, lost := s.ring.ReadNew(buf, s.last, s.shift)
	if got := len(buf) - n; s.max > 0 && got > s.max {
		lost += uint64(got - s.max)
		buf = append(buf[:n], buf[len(buf)-s.max:]...)
	}
	if lost > 0 {
		s.log.Warn("dropped samples behind reader", "lost", lost)
	}
	s.pending = total
	return buf
}

// Clear acknowledges the samples returned by the last Drain.
func (s *Source) Clear() {
	s.last = s.pending
}

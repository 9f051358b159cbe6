// Package replay feeds recorded accelerometer streams to the step engine.
//
// Recordings are CSV with one sample per line, either "x,y,z" or "t,x,y,z"
// where the leading timestamp column is ignored. Lines starting with '#' are
// comments.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/taigrr/stepcounter/pedometer"
)

// FIFODepth is the LIS2DW hardware FIFO depth, used as the default batch.
const FIFODepth = 32

// Parse reads every sample from r. Each axis is shifted right by shift bits.
func Parse(r io.Reader, shift uint) ([]pedometer.Sample, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var out []pedometer.Sample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading samples: %w", err)
		}
		line, _ := cr.FieldPos(0)

		var axes []string
		switch len(rec) {
		case 3:
			axes = rec
		case 4:
			axes = rec[1:]
		default:
			return nil, fmt.Errorf("line %d: expected 3 or 4 columns, got %d", line, len(rec))
		}

		var v [3]int32
		for i, f := range axes {
			n, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			v[i] = int32(n) >> shift
		}
		out = append(out, pedometer.Sample{X: v[0], Y: v[1], Z: v[2]})
	}
}

// Source replays samples in fixed-size batches, one batch per Drain.
type Source struct {
	samples []pedometer.Sample
	batch   int
	pos     int
	clears  int
}

// NewSource creates a Source delivering at most batch samples per Drain.
// A non-positive batch uses FIFODepth.
func NewSource(samples []pedometer.Sample, batch int) *Source {
	if batch <= 0 {
		batch = FIFODepth
	}
	return &Source{samples: samples, batch: batch}
}

// Drain appends the next batch to buf.
func (s *Source) Drain(buf []pedometer.Sample) []pedometer.Sample {
	end := min(s.pos+s.batch, len(s.samples))
	buf = append(buf, s.samples[s.pos:end]...)
	s.pos = end
	return buf
}

// Clear acknowledges the last batch.
func (s *Source) Clear() { s.clears++ }

// Done reports whether every sample has been delivered.
func (s *Source) Done() bool { return s.pos >= len(s.samples) }

// Delivered returns the number of samples handed out so far.
func (s *Source) Delivered() int { return s.pos }

// Rewind restarts delivery from the first sample.
func (s *Source) Rewind() {
	s.pos = 0
	s.clears = 0
}

package replay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taigrr/stepcounter/pedometer"
)

func stepsAt(seqs ...uint64) []pedometer.Step {
	out := make([]pedometer.Step, len(seqs))
	for i, s := range seqs {
		out[i] = pedometer.Step{Seq: s, Total: uint64(i + 1)}
	}
	return out
}

func TestStepCadenceRegular(t *testing.T) {
	c := StepCadence(stepsAt(0, 10, 20, 30), SampleRate)
	require.Equal(t, 4, c.Steps)
	require.InDelta(t, 10, c.MeanInterval, 1e-9)
	require.InDelta(t, 0, c.StdInterval, 1e-9)
	require.InDelta(t, 150, c.PerMinute, 1e-9)
}

func TestStepCadenceIrregular(t *testing.T) {
	c := StepCadence(stepsAt(0, 10, 30), SampleRate)
	require.InDelta(t, 15, c.MeanInterval, 1e-9)
	require.InDelta(t, math.Sqrt(50), c.StdInterval, 1e-9)
}

func TestStepCadenceTooFew(t *testing.T) {
	require.Equal(t, Cadence{}, StepCadence(nil, SampleRate))
	require.Equal(t, Cadence{Steps: 1}, StepCadence(stepsAt(5), SampleRate))

	c := StepCadence(stepsAt(5, 17), SampleRate)
	require.InDelta(t, 12, c.MeanInterval, 1e-9)
	require.Zero(t, c.StdInterval)
}

func TestDominantFrequency(t *testing.T) {
	sig := make([]float64, 100)
	for i := range sig {
		sig[i] = 60 + 20*math.Sin(2*math.Pi*float64(i)/10)
	}
	require.InDelta(t, 2.5, DominantFrequency(sig, SampleRate), 1e-9)
}

func TestDominantFrequencyFlat(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 64
	}
	require.Zero(t, DominantFrequency(flat, SampleRate))
	require.Zero(t, DominantFrequency([]float64{1, 2}, SampleRate))
}

func TestCadenceFromEngine(t *testing.T) {
	var samples []pedometer.Sample
	for i := range 400 {
		m := int32(64)
		if i%12 == 0 {
			m += 30
		}
		samples = append(samples, pedometer.Sample{X: m << 8})
	}

	var steps []pedometer.Step
	e := pedometer.New(pedometer.WithStepHook(func(s pedometer.Step) {
		steps = append(steps, s)
	}))
	e.Ingest(samples[:200])
	e.Detect()
	e.Ingest(samples[200:])
	e.Detect()

	c := StepCadence(steps, SampleRate)
	require.Equal(t, 32, c.Steps)
	require.InDelta(t, 12, c.MeanInterval, 1e-9)
	require.InDelta(t, 125, c.PerMinute, 1e-9)
}

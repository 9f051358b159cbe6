package replay

import (
	"math"
	"math/cmplx"

	"github.com/taigrr/stepcounter/pedometer"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// SampleRate is the nominal accelerometer output rate in Hz.
const SampleRate = 25.0

// Cadence summarises the spacing of accepted steps.
type Cadence struct {
	Steps        int
	MeanInterval float64 // samples between consecutive steps
	StdInterval  float64
	PerMinute    float64 // steps per minute at the given rate
}

// StepCadence computes interval statistics from steps recorded in order.
// Fewer than two steps give a zero Cadence apart from Steps.
func StepCadence(steps []pedometer.Step, rate float64) Cadence {
	c := Cadence{Steps: len(steps)}
	if len(steps) < 2 {
		return c
	}
	iv := make([]float64, len(steps)-1)
	for i := 1; i < len(steps); i++ {
		iv[i-1] = float64(steps[i].Seq - steps[i-1].Seq)
	}
	c.MeanInterval, c.StdInterval = stat.MeanStdDev(iv, nil)
	if len(iv) == 1 {
		c.StdInterval = 0
	}
	if c.MeanInterval > 0 {
		c.PerMinute = 60 * rate / c.MeanInterval
	}
	return c
}

// DominantFrequency returns the strongest non-DC frequency in signal, in Hz
// for samples taken at rate. It returns 0 for signals shorter than four
// samples or with no variation.
func DominantFrequency(signal []float64, rate float64) float64 {
	n := len(signal)
	if n < 4 {
		return 0
	}
	mean := stat.Mean(signal, nil)
	x := make([]float64, n)
	for i, v := range signal {
		x[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, x)
	best, bestMag := 0, 0.0
	for k := 1; k < len(coeff); k++ {
		if m := cmplx.Abs(coeff[k]); m > bestMag {
			best, bestMag = k, m
		}
	}
	if best == 0 || bestMag < 1e-9*math.Sqrt(float64(n)) {
		return 0
	}
	return fft.Freq(best) * rate
}

package pedometer_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taigrr/stepcounter/pedometer"
)

// fifo is an in-memory sensor FIFO.
type fifo struct {
	pending []pedometer.Sample
	clears  int
}

func (f *fifo) push(mags ...uint8) {
	for _, m := range mags {
		f.pending = append(f.pending, mag(m))
	}
}

func (f *fifo) Drain(buf []pedometer.Sample) []pedometer.Sample {
	buf = append(buf, f.pending...)
	f.pending = f.pending[:0]
	return buf
}

func (f *fifo) Clear() { f.clears++ }

// mag returns a sample whose estimated magnitude is exactly m.
func mag(m uint8) pedometer.Sample {
	return pedometer.Sample{X: int32(m) << 8}
}

func repeat(v uint8, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func feed(e *pedometer.Engine, mags ...uint8) int {
	batch := make([]pedometer.Sample, len(mags))
	for i, m := range mags {
		batch[i] = mag(m)
	}
	n := e.Ingest(batch)
	return n + e.Detect()
}

var noon = time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)

func scenarioConfig() pedometer.Config {
	return pedometer.Config{Threshold: 10, WindowBits: 4, MaxDuration: 4, MinInterval: 0}
}

func TestScenarioSinglePulse(t *testing.T) {
	var pulses []pedometer.Step
	e := pedometer.New(
		pedometer.WithConfig(scenarioConfig()),
		pedometer.WithStepHook(func(s pedometer.Step) { pulses = append(pulses, s) }),
	)

	require.Zero(t, feed(e, repeat(50, 16)...))
	require.Equal(t, 1, feed(e, 90, 50))
	require.Equal(t, uint64(1), e.Steps())
	require.Equal(t, []pedometer.Step{{Seq: 16, Duration: 1, Total: 1}}, pulses)
}

func TestScenarioSinglePulseOnePass(t *testing.T) {
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))
	require.Equal(t, 1, feed(e, append(repeat(50, 16), 90, 50)...))
	require.Equal(t, uint64(1), e.Steps())
}

func TestScenarioDebounce(t *testing.T) {
	cfg := scenarioConfig()
	cfg.MinInterval = 8
	e := pedometer.New(pedometer.WithConfig(cfg))

	feed(e, repeat(50, 16)...)
	feed(e, 90, 50, 50, 90, 50)
	require.Equal(t, uint64(1), e.Steps())
	require.Equal(t, uint64(1), e.Stats().TooSoon)
}

func TestScenarioDurationRejected(t *testing.T) {
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))

	feed(e, repeat(50, 16)...)
	feed(e, 90, 90, 90, 90, 90, 50)
	require.Zero(t, e.Steps())
	require.Equal(t, uint64(1), e.Stats().TooLong)
}

func TestFlatInputYieldsNothing(t *testing.T) {
	var traces []pedometer.Trace
	cfg := scenarioConfig()
	cfg.Threshold = 2
	e := pedometer.New(
		pedometer.WithConfig(cfg),
		pedometer.WithTrace(func(tr pedometer.Trace) { traces = append(traces, tr) }),
	)

	feed(e, repeat(70, 100)...)
	require.Zero(t, e.Steps())
	require.Len(t, traces, 100-15)
	for _, tr := range traces {
		require.Zero(t, tr.HighPass)
		require.Equal(t, 70, tr.Mean)
	}
}

func TestWarmupSuppressesStartupPulse(t *testing.T) {
	cfg := scenarioConfig()
	cfg.MaxDuration = 40
	e := pedometer.New(pedometer.WithConfig(cfg))

	// Against a zero-filled ring the first samples would read as one long
	// excursion.
	feed(e, repeat(50, 15)...)
	require.Zero(t, e.Steps())
	feed(e, repeat(50, 30)...)
	require.Zero(t, e.Steps())
}

func TestPulseCarriedAcrossPasses(t *testing.T) {
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))

	feed(e, repeat(50, 16)...)
	require.Zero(t, feed(e, 90, 90))
	require.Equal(t, 1, feed(e, 50))
	require.Equal(t, uint64(1), e.Steps())
}

func TestDebounceAcrossPasses(t *testing.T) {
	cfg := scenarioConfig()
	cfg.MinInterval = 8
	e := pedometer.New(pedometer.WithConfig(cfg))

	feed(e, repeat(50, 16)...)
	require.Equal(t, 1, feed(e, 90, 50))
	require.Zero(t, feed(e, 50, 90, 50))
	require.Equal(t, uint64(1), e.Steps())
}

// walk produces a gait-like stream: a footfall spike every period samples
// on top of a slowly drifting baseline, with noise.
func walk(rng *rand.Rand, n, period int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		base := 64 + (i/50)%6
		v := base + rng.IntN(5) - 2
		switch i % period {
		case 0:
			v += 30
		case 1:
			v += 18
		}
		out[i] = uint8(v)
	}
	return out
}

func TestScheduleIndependence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	stream := walk(rng, 2000, 13)

	count := func(chunk int) uint64 {
		e := pedometer.New()
		var added int
		for i := 0; i < len(stream); i += chunk {
			added += feed(e, stream[i:min(i+chunk, len(stream))]...)
		}
		require.Equal(t, e.Steps(), uint64(added), "chunk=%d", chunk)
		require.Zero(t, e.Stats().Overruns, "chunk=%d", chunk)
		return e.Steps()
	}

	want := count(1)
	require.NotZero(t, want)
	for _, chunk := range []int{3, 25, 32, 127, 192, 200, 255, 256, len(stream)} {
		require.Equal(t, want, count(chunk), "chunk=%d", chunk)
	}
}

func TestLargeBatchKeepsWindowHistory(t *testing.T) {
	cfg := pedometer.Config{Threshold: 30, WindowBits: 6, MaxDuration: 40, MinInterval: 0}
	tail := append(repeat(50, 180), repeat(10, 70)...)

	run := func(chunk int) (uint64, pedometer.Stats) {
		e := pedometer.New(pedometer.WithConfig(cfg))
		for i := 0; i < 300; i += 10 {
			feed(e, repeat(50, 10)...)
		}
		for i := 0; i < len(tail); i += chunk {
			feed(e, tail[i:min(i+chunk, len(tail))]...)
		}
		return e.Steps(), e.Stats()
	}

	steps, _ := run(1)
	require.Zero(t, steps)

	steps, st := run(len(tail))
	require.Zero(t, steps)
	require.Zero(t, st.Accepted)
	require.Zero(t, st.Overruns)
	// The first 192 tail samples fit below Cap()-64; the rest need a second pass.
	require.Equal(t, uint64(30+2), st.Passes)
}

func TestIngestRunsPassBeforeHistoryIsOverwritten(t *testing.T) {
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))
	limit := e.Ring().Cap() - 64

	batch := make([]pedometer.Sample, limit)
	for i := range batch {
		batch[i] = mag(50)
	}
	require.Zero(t, e.Ingest(batch))
	require.Equal(t, limit, e.Ring().Available())
	require.Zero(t, e.Stats().Passes)

	require.Zero(t, e.Ingest([]pedometer.Sample{mag(50)}))
	require.Equal(t, uint64(1), e.Stats().Passes)
	require.Equal(t, 1, e.Ring().Available())
}

func TestMonotonicWithinDay(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	src := &fifo{}
	e := pedometer.New()

	now := noon
	var last uint64
	for range 400 {
		src.push(walk(rng, rng.IntN(32), 11)...)
		e.Tick(now, src)
		require.GreaterOrEqual(t, e.Steps(), last)
		last = e.Steps()
		now = now.Add(40 * time.Millisecond)
	}
	require.NotZero(t, last)
	require.Equal(t, 400, src.clears)
}

func TestMidnightReset(t *testing.T) {
	src := &fifo{}
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))

	before := time.Date(2025, 3, 14, 23, 59, 59, 0, time.Local)
	src.push(repeat(50, 16)...)
	src.push(90, 90)
	e.Tick(before, src)
	require.Zero(t, e.Steps())

	src.push(50)
	e.Tick(before, src)
	require.Equal(t, uint64(1), e.Steps())

	// A pulse open at the boundary is dropped with the rest of the history.
	src.push(repeat(50, 16)...)
	src.push(90)
	e.Tick(before, src)
	require.Equal(t, uint64(1), e.Steps())

	after := time.Date(2025, 3, 15, 0, 0, 1, 0, time.Local)
	src.push(50)
	e.Tick(after, src)
	require.Zero(t, e.Steps())
	require.Zero(t, e.Ring().Available())
	require.Equal(t, uint64(1), e.Ring().Written())
}

func TestSkippedMidnightSecondStillResets(t *testing.T) {
	src := &fifo{}
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))

	src.push(repeat(50, 16)...)
	src.push(90, 50)
	e.Tick(time.Date(2025, 3, 14, 23, 59, 55, 0, time.Local), src)
	require.Equal(t, uint64(1), e.Steps())

	e.Tick(time.Date(2025, 3, 15, 0, 0, 7, 0, time.Local), src)
	require.Zero(t, e.Steps())
}

func TestPassEveryBatchesDetection(t *testing.T) {
	src := &fifo{}
	e := pedometer.New(
		pedometer.WithConfig(scenarioConfig()),
		pedometer.WithPassEvery(3),
	)

	src.push(repeat(50, 16)...)
	require.Zero(t, e.Tick(noon, src))
	src.push(90, 50)
	require.Zero(t, e.Tick(noon, src))
	require.Zero(t, e.Steps())
	require.Equal(t, 18, e.Ring().Available())

	require.Equal(t, 1, e.Tick(noon, src))
	require.Equal(t, uint64(1), e.Steps())
	require.Equal(t, uint64(1), e.Stats().Passes)
}

func TestHalfFullRingForcesPass(t *testing.T) {
	src := &fifo{}
	e := pedometer.New(
		pedometer.WithCapacity(128),
		pedometer.WithPassEvery(100),
	)

	src.push(repeat(60, 64)...)
	e.Tick(noon, src)
	require.Zero(t, e.Ring().Available())
	require.Zero(t, e.Stats().Overruns)
}

func TestEmptyTick(t *testing.T) {
	e := pedometer.New()
	require.Zero(t, e.Tick(noon, &fifo{}))
	require.Zero(t, e.Tick(noon, nil))
	require.Zero(t, e.Detect())
	require.Zero(t, e.Stats().Passes)
}

func TestConfigUpdates(t *testing.T) {
	e := pedometer.New()
	require.Equal(t, pedometer.DefaultConfig(), e.Config())

	require.NoError(t, e.UpdateConfig(pedometer.FieldThreshold, 20))
	require.Equal(t, 20, e.Config().Threshold)
	require.ErrorIs(t, e.UpdateConfig(pedometer.FieldThreshold, 99), pedometer.ErrOutOfRange)
	require.Equal(t, 20, e.Config().Threshold)

	require.Equal(t, 5, e.AdvanceConfig(pedometer.FieldWindowBits))
	require.Equal(t, 4, e.RetreatConfig(pedometer.FieldWindowBits))
	require.Equal(t, 18, e.RetreatConfig(pedometer.FieldThreshold))

	require.Error(t, e.SetConfig(pedometer.Config{}))
	require.NoError(t, e.SetConfig(scenarioConfig()))
	require.Equal(t, scenarioConfig(), e.Config())

	e2 := pedometer.New(pedometer.WithConfig(pedometer.Config{WindowBits: 30}))
	require.Equal(t, pedometer.DefaultConfig(), e2.Config())
}

func TestReset(t *testing.T) {
	e := pedometer.New(pedometer.WithConfig(scenarioConfig()))
	feed(e, append(repeat(50, 16), 90, 50)...)
	require.Equal(t, uint64(1), e.Steps())

	e.Reset()
	require.Zero(t, e.Steps())
	require.Equal(t, pedometer.Stats{}, e.Stats())

	// Fresh warm-up after reset.
	require.Equal(t, 1, feed(e, append(repeat(50, 16), 90, 50)...))
}

//go:build darwin

package shm

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taigrr/stepcounter/pedometer"
)

func testName(t *testing.T, kind string) string {
	t.Helper()
	return fmt.Sprintf("stc_%s_%d", kind, os.Getpid())
}

func TestRingReadNew(t *testing.T) {
	ring, err := CreateRing(testName(t, "ring"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ring.Close()
		ring.Unlink()
	})

	for i := range int32(5) {
		ring.WriteSample(i<<2, -i<<2, 65536)
	}
	got, total, lost := ring.ReadNew(nil, 2, 2)
	require.Equal(t, uint64(5), total)
	require.Zero(t, lost)
	require.Equal(t, []pedometer.Sample{
		{X: 2, Y: -2, Z: 16384},
		{X: 3, Y: -3, Z: 16384},
		{X: 4, Y: -4, Z: 16384},
	}, got)

	got, _, _ = ring.ReadNew(got[:0], 5, 0)
	require.Empty(t, got)
}

func TestRingOverrun(t *testing.T) {
	ring, err := CreateRing(testName(t, "over"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ring.Close()
		ring.Unlink()
	})

	for i := range int32(RingCap + 10) {
		ring.WriteSample(i, 0, 0)
	}
	got, total, lost := ring.ReadNew(nil, 0, 0)
	require.Equal(t, uint64(RingCap+10), total)
	require.Equal(t, uint64(10), lost)
	require.Len(t, got, RingCap)
	require.Equal(t, int32(10), got[0].X)
	require.Equal(t, int32(RingCap+9), got[len(got)-1].X)
}

func TestSourceKeepsNewest(t *testing.T) {
	ring, err := CreateRing(testName(t, "src"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ring.Close()
		ring.Unlink()
	})

	src := NewSource(ring, 0, 4, nil)
	for i := range int32(6) {
		ring.WriteSample(i, 0, 0)
	}
	got := src.Drain(nil)
	require.Len(t, got, 4)
	require.Equal(t, int32(2), got[0].X)

	// Not acknowledged yet: the same samples come back.
	require.Len(t, src.Drain(nil), 4)
	src.Clear()
	require.Empty(t, src.Drain(nil))

	ring.WriteSample(42, 0, 0)
	got = src.Drain(nil)
	require.Equal(t, []pedometer.Sample{{X: 42}}, got)
}

func TestSnapshotPublishRead(t *testing.T) {
	name := testName(t, "snap")
	w, err := CreateSnapshot(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		w.Close()
		w.Unlink()
	})
	r, err := OpenSnapshot(name)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, last, ok := r.Read(0)
	require.False(t, ok)

	cfg := pedometer.DefaultConfig()
	cfg.Threshold = 16
	w.Publish(StepStatus{Steps: 1234, Config: cfg})

	st, last, ok := r.Read(last)
	require.True(t, ok)
	require.Equal(t, StepStatus{Steps: 1234, Config: cfg}, st)

	_, _, ok = r.Read(last)
	require.False(t, ok)
}

func TestSnapshotTornRead(t *testing.T) {
	name := testName(t, "torn")
	w, err := CreateSnapshot(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		w.Close()
		w.Unlink()
	})
	r, err := OpenSnapshot(name)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	w.Publish(StepStatus{Steps: 7, Config: pedometer.DefaultConfig()})
	_, last, ok := r.Read(0)
	require.True(t, ok)
	require.Equal(t, uint32(2), last)

	// Writer stopped halfway: counter odd, threshold not yet written.
	w.putU32(0, last+1)
	w.putU32(SnapHeader+8, 0)
	_, got, ok := r.Read(last)
	require.False(t, ok)
	require.Equal(t, last, got)

	// Counter settled but a field is out of range.
	w.putU32(0, last+2)
	_, got, ok = r.Read(last)
	require.False(t, ok)
	require.Equal(t, last, got)

	w.Publish(StepStatus{Steps: 8, Config: pedometer.DefaultConfig()})
	st, got, ok := r.Read(last)
	require.True(t, ok)
	require.Equal(t, uint64(8), st.Steps)
	require.Equal(t, pedometer.DefaultConfig(), st.Config)
	require.Equal(t, last+4, got)
}

//go:build darwin

// Package shm provides the POSIX shared memory regions that connect sensord,
// the step daemon and the dashboard: a ring of raw accelerometer samples and
// a snapshot of the current step count.
package shm

import (
	"encoding/binary"
	"fmt"

	"github.com/taigrr/stepcounter/pedometer"
	"golang.org/x/sys/unix"
)

// Layout constants.
const (
	RingCap    = 4096
	RingEntry  = 12 // 3x int32: x, y, z
	RingHeader = 16 // [0..3] write_idx u32, [4..11] total u64, [12..15] restarts u32
	RingSize   = RingHeader + RingCap*RingEntry
	SnapHeader = 8 // [0..3] update_count u32, [4..7] pad

	NameAccel = "step_counter_shm_accel"
	NameSteps = "step_counter_shm_steps"
)

// region is a mapped shared memory segment.
type region struct {
	buf  []byte
	name string
	fd   int
}

// mapRegion maps the segment name. A writable region is created fresh,
// replacing any stale segment left by a crashed writer.
func mapRegion(name string, size int, writable bool) (region, error) {
	flags, prot := unix.O_RDONLY, unix.PROT_READ
	if writable {
		_ = shmUnlink(name)
		flags, prot = unix.O_CREAT|unix.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	fd, err := shmOpen(name, flags, 0o600)
	if err != nil {
		return region{}, err
	}
	fail := func(op string, err error) (region, error) {
		unix.Close(fd)
		return region{}, fmt.Errorf("%s %s: %w", op, name, err)
	}
	if writable {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			return fail("ftruncate", err)
		}
	}
	buf, err := unix.Mmap(fd, 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return fail("mmap", err)
	}
	if writable {
		clear(buf)
	}
	return region{buf: buf, name: name, fd: fd}, nil
}

// Close unmaps and closes the segment without unlinking it.
func (r region) Close() error {
	if err := unix.Munmap(r.buf); err != nil {
		return err
	}
	return unix.Close(r.fd)
}

// Unlink removes the named segment.
func (r region) Unlink() error {
	return shmUnlink(r.name)
}

func (r region) u32(off int) uint32       { return binary.LittleEndian.Uint32(r.buf[off:]) }
func (r region) u64(off int) uint64       { return binary.LittleEndian.Uint64(r.buf[off:]) }
func (r region) putU32(off int, v uint32) { binary.LittleEndian.PutUint32(r.buf[off:], v) }
func (r region) putU64(off int, v uint64) { binary.LittleEndian.PutUint64(r.buf[off:], v) }

// Ring header offsets.
const (
	offWriteIdx = 0
	offTotal    = 4
	offRestarts = 12
)

// RingBuffer is a shared memory ring of raw triaxial samples.
type RingBuffer struct {
	region
}

// CreateRing creates a new sample ring, replacing any stale one.
func CreateRing(name string) (*RingBuffer, error) {
	r, err := mapRegion(name, RingSize, true)
	if err != nil {
		return nil, err
	}
	return &RingBuffer{r}, nil
}

// OpenRing opens an existing sample ring read-only.
func OpenRing(name string) (*RingBuffer, error) {
	r, err := mapRegion(name, RingSize, false)
	if err != nil {
		return nil, err
	}
	return &RingBuffer{r}, nil
}

func entryOffset(idx uint64) int {
	return RingHeader + int(idx%RingCap)*RingEntry
}

// WriteSample appends one raw sample. The total is bumped last so readers
// never see a slot before it is filled.
func (r *RingBuffer) WriteSample(x, y, z int32) {
	idx := r.u32(offWriteIdx)
	off := entryOffset(uint64(idx))
	for i, v := range [3]int32{x, y, z} {
		r.putU32(off+4*i, uint32(v))
	}
	r.putU32(offWriteIdx, (idx+1)%RingCap)
	r.putU64(offTotal, r.u64(offTotal)+1)
}

// SetRestarts records how often the producer restarted.
func (r *RingBuffer) SetRestarts(count uint32) {
	r.putU32(offRestarts, count)
}

// Restarts returns the producer restart count.
func (r *RingBuffer) Restarts() uint32 {
	return r.u32(offRestarts)
}

// Total returns the number of samples ever written.
func (r *RingBuffer) Total() uint64 {
	return r.u64(offTotal)
}

// ReadNew appends samples written after lastTotal to buf, each axis shifted
// right by shift bits. It returns the extended slice, the new total, and how
// many samples were lost because the reader fell more than RingCap behind.
func (r *RingBuffer) ReadNew(buf []pedometer.Sample, lastTotal uint64, shift uint) ([]pedometer.Sample, uint64, uint64) {
	total := r.Total()
	if total <= lastTotal {
		return buf, total, 0
	}
	pending := total - lastTotal
	var lost uint64
	if pending > RingCap {
		lost = pending - RingCap
		pending = RingCap
	}

	// The write index wraps with the total, so slot i of the stream lives at
	// i mod RingCap.
	for seq := total - pending; seq < total; seq++ {
		off := entryOffset(seq)
		buf = append(buf, pedometer.Sample{
			X: int32(r.u32(off)) >> shift,
			Y: int32(r.u32(off+4)) >> shift,
			Z: int32(r.u32(off+8)) >> shift,
		})
	}
	return buf, total, lost
}

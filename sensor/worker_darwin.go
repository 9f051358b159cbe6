//go:build darwin

package sensor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/taigrr/stepcounter/shm"
)

// Config holds the sample ring target and decimation for the sensor worker.
type Config struct {
	AccelRing  *shm.RingBuffer
	Decimation int // keep one report in Decimation; <= 0 uses DefaultDecimation
	Restarts   uint32
}

// callbackState holds mutable state touched from the HID callback. It lives
// for the duration of the run loop.
type callbackState struct {
	ring       *shm.RingBuffer
	decimation int
	count      int
}

// Only one worker runs per process.
var (
	globalState *callbackState

	callbackOnce sync.Once
	callbackPtr  uintptr
)

func accelCallback(_ uintptr, _ int32, _ uintptr, _ int32, _ uint32, report *byte, length int) {
	st := globalState
	if st == nil || st.ring == nil || length != IMUReportLen {
		return
	}
	st.count++
	if st.count < st.decimation {
		return
	}
	st.count = 0

	x, y, z := ParseIMUReport(unsafe.Slice(report, length))
	st.ring.WriteSample(x, y, z)
}

// Run streams accelerometer reports into cfg.AccelRing until ctx is done.
// The CFRunLoop is pumped on the calling goroutine, which is locked to its
// OS thread for the duration.
func Run(ctx context.Context, cfg Config) error {
	if cfg.AccelRing == nil {
		return fmt.Errorf("sensor: no sample ring configured")
	}
	if err := loadFrameworks(); err != nil {
		return err
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	dec := cfg.Decimation
	if dec <= 0 {
		dec = DefaultDecimation
	}
	globalState = &callbackState{ring: cfg.AccelRing, decimation: dec}
	defer func() { globalState = nil }()
	callbackOnce.Do(func() { callbackPtr = purego.NewCallback(accelCallback) })

	cfg.AccelRing.SetRestarts(cfg.Restarts)

	if err := wakeSPUDrivers(); err != nil {
		return fmt.Errorf("waking SPU drivers: %w", err)
	}
	n, err := registerAccel()
	if err != nil {
		return fmt.Errorf("registering HID devices: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no accelerometer found")
	}

	for ctx.Err() == nil {
		cf.runLoopRunInMode(cf.runLoopMode, 0.5, false)
	}
	return nil
}

// wakeSPUDrivers turns reporting on for every AppleSPUHIDDriver.
func wakeSPUDrivers() error {
	return eachService("AppleSPUHIDDriver", func(svc uint32) {
		for _, p := range []struct {
			key string
			val int32
		}{
			{"SensorPropertyReportingState", 1},
			{"SensorPropertyPowerState", 1},
			{"ReportInterval", ReportIntervalUS},
		} {
			iokit.setCFProperty(svc, cfString(p.key), cfInt32(p.val))
		}
	})
}

// reportBufs keeps the buffers handed to IOKit reachable.
var reportBufs [][]byte

// registerAccel attaches the callback to every accelerometer HID device and
// returns how many were attached.
func registerAccel() (int, error) {
	n := 0
	err := eachService("AppleSPUHIDDevice", func(svc uint32) {
		page, _ := registryInt(svc, "PrimaryUsagePage")
		usage, _ := registryInt(svc, "PrimaryUsage")
		if page != PageVendor || usage != UsageAccel {
			return
		}
		hid := iokit.hidDeviceCreate(cf.allocatorDefault, svc)
		if hid == 0 || iokit.hidDeviceOpen(hid, 0) != 0 {
			return
		}
		buf := make([]byte, ReportBufSize)
		reportBufs = append(reportBufs, buf)
		iokit.hidRegisterReport(hid, uintptr(unsafe.Pointer(&buf[0])), ReportBufSize, callbackPtr, 0)
		iokit.hidScheduleWithRL(hid, cf.runLoopCurrent(), cf.runLoopMode)
		n++
	})
	return n, err
}

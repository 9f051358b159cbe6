// Package sensor streams the Apple Silicon accelerometer (Bosch BMI286 behind
// AppleSPUHIDDevice) into a shared memory sample ring via IOKit HID.
package sensor

// HID usage page and usage of the SPU accelerometer.
const (
	PageVendor = 0xFF00 // Apple vendor page
	UsageAccel = 3
)

// Report format of the BMI286 IMU.
const (
	IMUReportLen     = 22   // accel report length in bytes
	IMUDataOffset    = 6    // XYZ payload start offset
	ReportBufSize    = 4096 // HID callback buffer size
	ReportIntervalUS = 1000 // driver report interval in microseconds

	// DefaultDecimation keeps roughly 25 Hz of the ~800 Hz report stream,
	// the rate the step detector is tuned for.
	DefaultDecimation = 32
)

// CoreFoundation type IDs.
const (
	CFStringEncodingUTF8 = 0x08000100
	CFNumberSInt32Type   = 3
	CFNumberSInt64Type   = 4
)

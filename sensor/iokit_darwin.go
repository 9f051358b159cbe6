//go:build darwin

package sensor

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

const (
	iokitPath = "/System/Library/Frameworks/IOKit.framework/IOKit"
	cfPath    = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"
)

// iokit holds the IOKit entry points used to find and stream the SPU devices.
var iokit struct {
	serviceMatching     func(name *byte) uintptr
	getMatchingServices func(mainPort uint32, matching uintptr, existing *uint32) int32
	iteratorNext        func(iterator uint32) uint32
	objectRelease       func(object uint32) int32
	createCFProperty    func(entry uint32, key, allocator uintptr, options uint32) uintptr
	setCFProperty       func(entry uint32, key, value uintptr) int32
	hidDeviceCreate     func(allocator uintptr, service uint32) uintptr
	hidDeviceOpen       func(device uintptr, options int32) int32
	hidRegisterReport   func(device, report uintptr, reportLen int, callback, context uintptr)
	hidScheduleWithRL   func(device, runLoop, mode uintptr)
}

// cf holds the CoreFoundation entry points and constants.
var cf struct {
	stringWithCString func(alloc uintptr, s *byte, encoding uint32) uintptr
	numberCreate      func(alloc uintptr, typ int32, value uintptr) uintptr
	numberGetValue    func(number uintptr, typ int32, value uintptr) bool
	runLoopCurrent    func() uintptr
	runLoopRunInMode  func(mode uintptr, seconds float64, returnAfterSource bool) int32

	allocatorDefault uintptr
	runLoopMode      uintptr
}

var (
	frameworksOnce sync.Once
	frameworksErr  error
)

// loadFrameworks binds IOKit and CoreFoundation on first use.
func loadFrameworks() error {
	frameworksOnce.Do(func() {
		iokitLib, err := purego.Dlopen(iokitPath, purego.RTLD_LAZY)
		if err != nil {
			frameworksErr = fmt.Errorf("dlopen IOKit: %w", err)
			return
		}
		cfLib, err := purego.Dlopen(cfPath, purego.RTLD_LAZY)
		if err != nil {
			frameworksErr = fmt.Errorf("dlopen CoreFoundation: %w", err)
			return
		}

		bind := func(lib uintptr, syms map[string]any) {
			for name, fn := range syms {
				purego.RegisterLibFunc(fn, lib, name)
			}
		}
		bind(iokitLib, map[string]any{
			"IOServiceMatching":                      &iokit.serviceMatching,
			"IOServiceGetMatchingServices":           &iokit.getMatchingServices,
			"IOIteratorNext":                         &iokit.iteratorNext,
			"IOObjectRelease":                        &iokit.objectRelease,
			"IORegistryEntryCreateCFProperty":        &iokit.createCFProperty,
			"IORegistryEntrySetCFProperty":           &iokit.setCFProperty,
			"IOHIDDeviceCreate":                      &iokit.hidDeviceCreate,
			"IOHIDDeviceOpen":                        &iokit.hidDeviceOpen,
			"IOHIDDeviceRegisterInputReportCallback": &iokit.hidRegisterReport,
			"IOHIDDeviceScheduleWithRunLoop":         &iokit.hidScheduleWithRL,
		})
		bind(cfLib, map[string]any{
			"CFStringCreateWithCString": &cf.stringWithCString,
			"CFNumberCreate":            &cf.numberCreate,
			"CFNumberGetValue":          &cf.numberGetValue,
			"CFRunLoopGetCurrent":       &cf.runLoopCurrent,
			"CFRunLoopRunInMode":        &cf.runLoopRunInMode,
		})

		cf.allocatorDefault = loadPointer(cfLib, "kCFAllocatorDefault")
		cf.runLoopMode = loadPointer(cfLib, "kCFRunLoopDefaultMode")
		if cf.runLoopMode == 0 {
			frameworksErr = fmt.Errorf("kCFRunLoopDefaultMode not found")
		}
	})
	return frameworksErr
}

// loadPointer returns the pointer stored in the exported global name.
func loadPointer(lib uintptr, name string) uintptr {
	addr, err := purego.Dlsym(lib, name)
	if err != nil || addr == 0 {
		return 0
	}
	return **(**uintptr)(unsafe.Pointer(&addr))
}

// cString returns a NUL-terminated copy of s.
func cString(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}

func cfString(s string) uintptr {
	return cf.stringWithCString(0, cString(s), CFStringEncodingUTF8)
}

func cfInt32(v int32) uintptr {
	return cf.numberCreate(0, CFNumberSInt32Type, uintptr(unsafe.Pointer(&v)))
}

// registryInt reads an integer property of an IORegistry entry.
func registryInt(entry uint32, key string) (int64, bool) {
	ref := iokit.createCFProperty(entry, cfString(key), 0, 0)
	if ref == 0 {
		return 0, false
	}
	var v int64
	ok := cf.numberGetValue(ref, CFNumberSInt64Type, uintptr(unsafe.Pointer(&v)))
	return v, ok
}

// eachService calls fn for every IORegistry service of class, releasing each
// afterwards.
func eachService(class string, fn func(svc uint32)) error {
	var it uint32
	if kr := iokit.getMatchingServices(0, iokit.serviceMatching(cString(class)), &it); kr != 0 {
		return fmt.Errorf("IOServiceGetMatchingServices(%s) returned %d", class, kr)
	}
	defer iokit.objectRelease(it)
	for svc := iokit.iteratorNext(it); svc != 0; svc = iokit.iteratorNext(it) {
		fn(svc)
		iokit.objectRelease(svc)
	}
	return nil
}

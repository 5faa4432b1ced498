package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageZeroSize is the size of the __PAGEZERO segment the linker places in
// front of 64-bit Mach-O executables. Nothing can be mapped below it.
const pageZeroSize = 1 << 32

func reserve(base, length uintptr) error {
	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(base), length, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return fmt.Errorf("%w: mmap(%#x, %#x): %v", ErrDenied, base, length, err)
	}
	if uintptr(p) != base {
		_ = unix.MunmapPtr(p, length)
		return ErrOccupied
	}
	return nil
}

func release(base, length uintptr) error {
	return unix.MunmapPtr(unsafe.Pointer(base), length)
}

func minAddress() uintptr {
	if PointerBits == 64 {
		return pageZeroSize
	}
	return uintptr(unix.Getpagesize())
}

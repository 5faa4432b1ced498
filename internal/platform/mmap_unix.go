// Separated from linux which has MAP_FIXED_NOREPLACE.
//go:build unix && !linux && !darwin

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func reserve(base, length uintptr) error {
	// Without MAP_FIXED the address is only a hint, so a conflict shows up as
	// a mapping placed somewhere else.
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
	return uintptr(unix.Getpagesize())
}

package platform

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const minAddrPath = "/proc/sys/vm/mmap_min_addr"

func reserve(base, length uintptr) error {
	// MAP_NORESERVE as no-access pages never need backing store.
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_NORESERVE | unix.MAP_FIXED_NOREPLACE
	p, err := unix.MmapPtr(-1, 0, unsafe.Pointer(base), length, unix.PROT_NONE, flags)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return ErrOccupied
		}
		return fmt.Errorf("%w: mmap(%#x, %#x): %v", ErrDenied, base, length, err)
	}
	if uintptr(p) != base {
		// Kernels before 4.17 ignore MAP_FIXED_NOREPLACE and treat the
		// address as a hint.
		_ = unix.MunmapPtr(p, length)
		return ErrOccupied
	}
	return nil
}

func release(base, length uintptr) error {
	return unix.MunmapPtr(unsafe.Pointer(base), length)
}

func minAddress() uintptr {
	page := uintptr(unix.Getpagesize())
	b, err := os.ReadFile(minAddrPath)
	if err != nil {
		return page
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || n == 0 {
		return page
	}
	return alignUp(uintptr(n), page)
}

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

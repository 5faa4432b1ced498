package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// allocationGranularity is the alignment and lower bound of VirtualAlloc
// reservations. The first 64KiB of every process are never mappable.
const allocationGranularity = 64 << 10

func reserve(base, length uintptr) error {
	p, err := windows.VirtualAlloc(base, length, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_ADDRESS) {
			return ErrOccupied
		}
		return fmt.Errorf("%w: VirtualAlloc(%#x, %#x): %v", ErrDenied, base, length, err)
	}
	if p != base {
		_ = windows.VirtualFree(p, 0, windows.MEM_RELEASE)
		return ErrOccupied
	}
	return nil
}

func release(base, _ uintptr) error {
	// MEM_RELEASE requires a zero size and frees the whole reservation.
	return windows.VirtualFree(base, 0, windows.MEM_RELEASE)
}

func minAddress() uintptr {
	return allocationGranularity
}

func mappings() ([]Mapping, error) {
	return nil, ErrNoMappingTable
}

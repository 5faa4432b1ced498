// Package platform reserves fixed ranges of the process's virtual address
// space with no access, and reads the process mapping table where the OS
// exposes one.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrOccupied is returned when part of the requested range is already
	// mapped, or the kernel placed the mapping anywhere else.
	ErrOccupied = errors.New("address range already occupied")
	// ErrDenied is returned when the kernel refused the reservation for any
	// other reason, such as an address space rlimit.
	ErrDenied = errors.New("reservation denied by platform")
	// ErrUnsupported is returned when this GOOS/GOARCH has no way to reserve
	// a fixed address range.
	ErrUnsupported = fmt.Errorf("fixed address reservation unsupported on GOOS=%s GOARCH=%s", runtime.GOOS, runtime.GOARCH)
	// ErrNoMappingTable is returned by Mappings when the OS does not expose
	// the process mapping table.
	ErrNoMappingTable = fmt.Errorf("no process mapping table on GOOS=%s", runtime.GOOS)
)

// PointerBits is the width of a pointer on this GOARCH.
const PointerBits = 32 << (^uintptr(0) >> 63)

// Reserve maps [base, base+length) with no access. It never replaces an
// existing mapping and never accepts a relocated one.
//
// See https://man7.org/linux/man-pages/man2/mmap.2.html for MAP_FIXED_NOREPLACE.
func Reserve(base, length uintptr) error {
	if length == 0 {
		panic(errors.New("BUG: Reserve with zero length"))
	}
	return reserve(base, length)
}

// Release unmaps a range previously returned by Reserve.
func Release(base, length uintptr) error {
	if length == 0 {
		panic(errors.New("BUG: Release with zero length"))
	}
	return release(base, length)
}

// MinAddress returns the lowest address a process may map on this platform.
// Every address below it is guaranteed inaccessible by the kernel or loader.
func MinAddress() uintptr {
	return minAddress()
}

// Mappings returns the current process mapping table, ordered by address.
func Mappings() ([]Mapping, error) {
	return mappings()
}

// Mapping is one entry of the process mapping table.
type Mapping struct {
	// Start is the first address of the mapping.
	Start uintptr
	// End is one past the last address of the mapping.
	End uintptr
	// Perms is in /proc/PID/maps notation, e.g. "r-xp".
	Perms string
	// Path is the backing file or pseudo-path like "[heap]". Empty for
	// anonymous mappings.
	Path string
}

// Overlaps returns true if any part of the mapping lies in [lo, hi).
func (m Mapping) Overlaps(lo, hi uintptr) bool {
	return m.Start < hi && lo < m.End
}

// NoAccess returns true if the mapping can be neither read, written nor executed.
func (m Mapping) NoAccess() bool {
	return strings.HasPrefix(m.Perms, "---")
}

// String implements fmt.Stringer
func (m Mapping) String() string {
	s := fmt.Sprintf("%#x-%#x %s", m.Start, m.End, m.Perms)
	if m.Path != "" {
		s += " " + m.Path
	}
	return s
}

// Overlapping filters mappings to those intersecting [lo, hi).
func Overlapping(mappings []Mapping, lo, hi uintptr) (ret []Mapping) {
	for _, m := range mappings {
		if m.Overlaps(lo, hi) {
			ret = append(ret, m)
		}
	}
	return
}

// Host is the address space of the current process. It adapts the package
// functions to interfaces that accept an address space.
type Host struct{}

// Reserve implements the same method as documented on reservation.AddressSpace.
func (Host) Reserve(base, length uintptr) error { return Reserve(base, length) }

// Release implements the same method as documented on reservation.AddressSpace.
func (Host) Release(base, length uintptr) error { return Release(base, length) }

// MinAddress implements the same method as documented on reservation.AddressSpace.
func (Host) MinAddress() uintptr { return MinAddress() }

// PointerBits implements the same method as documented on reservation.AddressSpace.
func (Host) PointerBits() int { return PointerBits }

// Mappings implements the same method as documented on reservation.AddressSpace.
func (Host) Mappings() ([]Mapping, error) { return Mappings() }

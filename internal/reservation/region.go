package reservation

import (
	"fmt"

	"github.com/docker/go-units"
)

// Lower4GiB is the end of the emulated region: every address a truncated or
// wrapped 32-bit sandbox pointer can produce lies below it.
const Lower4GiB = 1 << 32

// Region is the reserved low range of the address space.
//
// Classification uses [Start, End). The platform mapping only covers
// [MapStart, End) because the kernel never lets a process map below MapStart.
// Bounds are uint64 so 4GiB is representable on every GOARCH.
type Region struct {
	// Start is the logical base, address zero.
	Start uint64
	// End is exclusive.
	End uint64
	// MapStart is the lowest mappable address on this platform.
	MapStart uint64
}

// Contains returns true if addr is in [Start, End). Start is inside and End
// is outside.
func (r Region) Contains(addr uintptr) bool {
	a := uint64(addr)
	return r.Start <= a && a < r.End
}

// Len returns the size of the region in bytes.
func (r Region) Len() uint64 {
	return r.End - r.Start
}

// Mapped returns true if part of the region needs a platform mapping.
func (r Region) Mapped() bool {
	return r.MapStart < r.End
}

// MappedLen returns the size of [MapStart, End), or zero.
func (r Region) MappedLen() uint64 {
	if !r.Mapped() {
		return 0
	}
	return r.End - r.MapStart
}

// String implements fmt.Stringer
func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x) %s", r.Start, r.End, units.BytesSize(float64(r.Len())))
}

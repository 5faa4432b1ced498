// Package addrspace is an in-memory address space for tests that must not
// touch the real low 4GiB of the test process.
package addrspace

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/hfiemu/internal/platform"
)

// Fake implements reservation.AddressSpace over a simulated mapping table.
type Fake struct {
	// Min is returned by MinAddress.
	Min uintptr
	// Bits is returned by PointerBits.
	Bits int
	// ReserveErr, when set, is returned by every Reserve.
	ReserveErr error
	// ReleaseErr, when set, is returned by every Release.
	ReleaseErr error
	// NoTable makes Mappings return platform.ErrNoMappingTable.
	NoTable bool

	mu       sync.Mutex
	maps     []platform.Mapping
	reserves int
	releases int
}

// New returns a 64-bit Fake with Linux's default mmap_min_addr.
func New(occupied ...platform.Mapping) *Fake {
	f := &Fake{Min: 0x10000, Bits: 64, maps: append([]platform.Mapping(nil), occupied...)}
	f.sort()
	return f
}

// Reserve implements the same method as documented on reservation.AddressSpace.
func (f *Fake) Reserve(base, length uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserves++
	if f.ReserveErr != nil {
		return f.ReserveErr
	}
	if len(platform.Overlapping(f.maps, base, base+length)) > 0 {
		return platform.ErrOccupied
	}
	f.maps = append(f.maps, platform.Mapping{Start: base, End: base + length, Perms: "---p"})
	f.sort()
	return nil
}

// Release implements the same method as documented on reservation.AddressSpace.
func (f *Fake) Release(base, length uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	if f.ReleaseErr != nil {
		return f.ReleaseErr
	}
	for i, m := range f.maps {
		if m.Start == base && m.End == base+length {
			f.maps = append(f.maps[:i], f.maps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no mapping at [%#x, %#x)", base, base+length)
}

// MinAddress implements the same method as documented on reservation.AddressSpace.
func (f *Fake) MinAddress() uintptr { return f.Min }

// PointerBits implements the same method as documented on reservation.AddressSpace.
func (f *Fake) PointerBits() int { return f.Bits }

// Mappings implements the same method as documented on reservation.AddressSpace.
func (f *Fake) Mappings() ([]platform.Mapping, error) {
	if f.NoTable {
		return nil, platform.ErrNoMappingTable
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Mapping(nil), f.maps...), nil
}

// Map adds a mapping as if another allocator placed it, e.g. to simulate
// tampering with a reservation.
func (f *Fake) Map(m platform.Mapping) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maps = append(f.maps, m)
	f.sort()
}

// Unmap removes every mapping intersecting [lo, hi).
func (f *Fake) Unmap(lo, hi uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.maps[:0]
	for _, m := range f.maps {
		if !m.Overlaps(lo, hi) {
			kept = append(kept, m)
		}
	}
	f.maps = kept
}

// Calls returns how many times Reserve and Release were invoked.
func (f *Fake) Calls() (reserves, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reserves, f.releases
}

func (f *Fake) sort() {
	sort.Slice(f.maps, func(i, j int) bool { return f.maps[i].Start < f.maps[j].Start })
}

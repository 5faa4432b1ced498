// Addresses above 4GiB need 64-bit pointers.
//go:build amd64 || arm64

package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserve_zeroLength(t *testing.T) {
	require.PanicsWithError(t, "BUG: Reserve with zero length", func() {
		_ = Reserve(1<<20, 0)
	})
	require.PanicsWithError(t, "BUG: Release with zero length", func() {
		_ = Release(1<<20, 0)
	})
}

func TestMapping(t *testing.T) {
	m := Mapping{Start: 0x400000, End: 0x500000, Perms: "r-xp", Path: "/usr/bin/app"}

	tests := []struct {
		name     string
		lo, hi   uintptr
		expected bool
	}{
		{name: "before", lo: 0, hi: 0x400000, expected: false},
		{name: "first byte", lo: 0, hi: 0x400001, expected: true},
		{name: "inside", lo: 0x410000, hi: 0x420000, expected: true},
		{name: "covering", lo: 0, hi: 1 << 32, expected: true},
		{name: "last byte", lo: 0x4fffff, hi: 0x600000, expected: true},
		{name: "after", lo: 0x500000, hi: 0x600000, expected: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, m.Overlaps(tc.lo, tc.hi))
		})
	}

	require.Equal(t, "0x400000-0x500000 r-xp /usr/bin/app", m.String())
	require.Equal(t, "0x10000-0x20000 ---p", Mapping{Start: 0x10000, End: 0x20000, Perms: "---p"}.String())
	require.False(t, m.NoAccess())
	require.True(t, Mapping{Perms: "---p"}.NoAccess())
}

func TestOverlapping(t *testing.T) {
	maps := []Mapping{
		{Start: 0x400000, End: 0x500000, Perms: "r-xp"},
		{Start: 0xc000000000, End: 0xc000400000, Perms: "rw-p"},
		{Start: 0xfffff000, End: 0x100001000, Perms: "rw-p"},
	}
	require.Equal(t, []Mapping{maps[0], maps[2]}, Overlapping(maps, 0, 1<<32))
	require.Nil(t, Overlapping(maps, 0, 0x1000))
}

func TestPointerBits(t *testing.T) {
	require.Contains(t, []int{32, 64}, PointerBits)
	require.Equal(t, PointerBits, Host{}.PointerBits())
}

// Addresses above 4GiB need 64-bit pointers.
//go:build amd64 || arm64

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tetratelabs/hfiemu/internal/reservation"
	"github.com/tetratelabs/hfiemu/internal/testing/addrspace"
	"github.com/tetratelabs/hfiemu/internal/testing/hammer"
)

// newReserver returns an initialized Reserver over a fake address space.
func newReserver(t *testing.T) *reservation.Reserver {
	logger, _ := logtest.NewNullLogger()
	r := reservation.NewReserver(reservation.NewRegistry(), addrspace.New(), reservation.WithLogger(logger))
	require.NoError(t, r.Initialize())
	return r
}

type exitRecorder struct {
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.codes = append(e.codes, code)
}

type countingObserver map[Classification]int

func (o countingObserver) FaultClassified(c Classification) {
	o[c]++
}

func TestClassifier_Classify(t *testing.T) {
	unreserved := reservation.NewRegistry()
	require.Equal(t, Unclassifiable, NewClassifier(unreserved).Classify(0))

	r := newReserver(t)
	c := NewClassifier(r.Registry())

	tests := []struct {
		name     string
		addr     uintptr
		expected Classification
	}{
		{name: "zero", addr: 0, expected: InSandboxBoundary},
		{name: "first page", addr: 0xfff, expected: InSandboxBoundary},
		{name: "below map start", addr: 0x8000, expected: InSandboxBoundary},
		{name: "map start", addr: 0x10000, expected: InSandboxBoundary},
		{name: "last byte", addr: reservation.Lower4GiB - 1, expected: InSandboxBoundary},
		{name: "end", addr: reservation.Lower4GiB, expected: OutsideBoundary},
		{name: "heap", addr: 0xc000010000, expected: OutsideBoundary},
		{name: "max", addr: ^uintptr(0), expected: OutsideBoundary},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, c.Classify(tc.addr))
		})
	}

	require.NoError(t, r.Release())
	for _, tc := range tests {
		require.Equal(t, Unclassifiable, c.Classify(tc.addr), tc.name)
	}
}

func TestClassifier_Classify_property(t *testing.T) {
	r := newReserver(t)
	c := NewClassifier(r.Registry())

	rapid.Check(t, func(t *rapid.T) {
		inside := rapid.Uint64Range(0, reservation.Lower4GiB-1).Draw(t, "inside")
		if got := c.Classify(uintptr(inside)); got != InSandboxBoundary {
			t.Fatalf("%#x: expected %s, got %s", inside, InSandboxBoundary, got)
		}
		outside := rapid.Uint64Min(reservation.Lower4GiB).Draw(t, "outside")
		if got := c.Classify(uintptr(outside)); got != OutsideBoundary {
			t.Fatalf("%#x: expected %s, got %s", outside, OutsideBoundary, got)
		}
	})

	require.NoError(t, r.Release())
	rapid.Check(t, func(t *rapid.T) {
		addr := rapid.Uint64().Draw(t, "addr")
		if got := c.Classify(uintptr(addr)); got != Unclassifiable {
			t.Fatalf("%#x after release: expected %s, got %s", addr, Unclassifiable, got)
		}
	})
}

func TestClassifier_Classify_doesNotAllocate(t *testing.T) {
	c := NewClassifier(newReserver(t).Registry())
	require.Equal(t, 0.0, testing.AllocsPerRun(100, func() {
		c.Classify(0x1000)
		c.Classify(reservation.Lower4GiB)
	}))
}

func TestClassifier_Classify_concurrent(t *testing.T) {
	c := NewClassifier(newReserver(t).Registry())

	P := 8
	N := 1000
	if testing.Short() {
		P = 4
		N = 100
	}

	hammer.NewHammer(t, P, N).Run(func(p, n int) {
		addr := uintptr(p)<<31 | uintptr(n)
		expected := OutsideBoundary
		if addr < reservation.Lower4GiB {
			expected = InSandboxBoundary
		}
		assert.Equal(t, expected, c.Classify(addr))
	}, nil)
}

func TestClassifier_Handle_inSandboxBoundary(t *testing.T) {
	exits := &exitRecorder{}
	observer := countingObserver{}
	c := NewClassifier(newReserver(t).Registry(), WithTerminator(exits.exit), WithObserver(observer))

	rec := &Record{Addr: 0x10, Access: AccessWrite}
	err := c.Handle(rec)

	require.True(t, errors.Is(err, ErrOutOfBoundsMemoryAccess), err)
	var trap *Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, Record{Addr: 0x10, Access: AccessWrite, Class: InSandboxBoundary}, trap.Record)
	require.Equal(t, InSandboxBoundary, rec.Class)
	require.EqualError(t, err, "out of bounds memory access at 0x10")

	require.Empty(t, exits.codes)
	require.Equal(t, countingObserver{InSandboxBoundary: 1}, observer)
}

func TestClassifier_Handle_fatal(t *testing.T) {
	tests := []struct {
		name          string
		registry      func(t *testing.T) *reservation.Registry
		addr          uintptr
		expectedClass Classification
		expectedState reservation.State
	}{
		{
			name:          "outside",
			registry:      func(t *testing.T) *reservation.Registry { return newReserver(t).Registry() },
			addr:          0x7f0000001000,
			expectedClass: OutsideBoundary,
			expectedState: reservation.Reserved,
		},
		{
			name:          "before reservation",
			registry:      func(*testing.T) *reservation.Registry { return reservation.NewRegistry() },
			addr:          0x10,
			expectedClass: Unclassifiable,
			expectedState: reservation.Unreserved,
		},
		{
			name: "after release",
			registry: func(t *testing.T) *reservation.Registry {
				r := newReserver(t)
				require.NoError(t, r.Release())
				return r.Registry()
			},
			addr:          0x10,
			expectedClass: Unclassifiable,
			expectedState: reservation.Released,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()
			exits := &exitRecorder{}
			observer := countingObserver{}
			c := NewClassifier(tc.registry(t), WithLogger(logger), WithTerminator(exits.exit), WithObserver(observer))

			err := c.Handle(&Record{Addr: tc.addr, Access: AccessRead, PC: 0x401000})
			require.True(t, errors.Is(err, ErrFatalFault), err)

			var fatal *FatalFaultError
			require.True(t, errors.As(err, &fatal))
			require.Equal(t, tc.expectedClass, fatal.Record.Class)
			require.Equal(t, tc.expectedState, fatal.State)

			require.Equal(t, []int{ExitCodeFault}, exits.codes)
			require.Equal(t, countingObserver{tc.expectedClass: 1}, observer)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			require.Equal(t, logrus.ErrorLevel, entry.Level)
			require.Equal(t, tc.expectedClass.String(), entry.Data["classification"])
			require.Equal(t, tc.expectedState.String(), entry.Data["state"])
			require.Equal(t, "0x401000", entry.Data["pc"])
		})
	}
}

func TestFatalFaultError_Error(t *testing.T) {
	err := &FatalFaultError{
		Record: Record{Addr: 0x7f0000001000, PC: 0x401000, Access: AccessRead, Class: OutsideBoundary},
		State:  reservation.Reserved,
	}
	require.EqualError(t, err, "fatal memory fault at 0x7f0000001000 (pc 0x401000, read access): outside_boundary in state reserved")
}

func TestStrings(t *testing.T) {
	require.Equal(t, "unclassifiable", Unclassifiable.String())
	require.Equal(t, "in_sandbox_boundary", InSandboxBoundary.String())
	require.Equal(t, "outside_boundary", OutsideBoundary.String())
	require.Equal(t, "Classification(9)", Classification(9).String())
	require.Equal(t, "unknown", AccessUnknown.String())
	require.Equal(t, "write", AccessWrite.String())
	require.Equal(t, "execute", AccessExecute.String())
}

func TestClassifyIn(t *testing.T) {
	region := reservation.Region{Start: 0, End: reservation.Lower4GiB, MapStart: 0x1000}

	tests := []struct {
		state    reservation.State
		addr     uintptr
		expected Classification
	}{
		{state: reservation.Unreserved, addr: 0x10, expected: Unclassifiable},
		{state: reservation.Reserved, addr: 0x10, expected: InSandboxBoundary},
		{state: reservation.Reserved, addr: 1 << 32, expected: OutsideBoundary},
		{state: reservation.Released, addr: 0x10, expected: Unclassifiable},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(fmt.Sprintf("%s %#x", tc.state, tc.addr), func(t *testing.T) {
			require.Equal(t, tc.expected, ClassifyIn(tc.state, region, tc.addr))
		})
	}
}

// Package hfiemu emulates hardware fault isolation (HFI) for sandboxed code
// compiled from WebAssembly, on CPUs without the hardware feature.
//
// It reserves the lower 4GiB of the process's address space with no access
// before any sandboxed code runs, so that a truncated or wrapped sandbox
// pointer faults instead of touching host memory. Faults raised inside
// Emulation.Call are classified: those inside the reserved region unwind to
// the caller as a *Trap, anything else terminates the process.
//
// A test binary opts in like this:
//
//	func TestMain(m *testing.M) {
//		os.Exit(hfiemu.Main(m))
//	}
//
// and is built with the "hfi_emulation" tag. On linux it must also be
// position independent, or the executable itself is mapped inside the low
// 4GiB and the reservation fails:
//
//	go test -tags hfi_emulation -buildmode=pie ./...
package hfiemu

import (
	"github.com/tetratelabs/hfiemu/internal/fault"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

// State is the reservation lifecycle. See reservation.State
type State = reservation.State

const (
	Unreserved = reservation.Unreserved
	Reserved   = reservation.Reserved
	Released   = reservation.Released
)

// Region is the reserved range. See reservation.Region
type Region = reservation.Region

// Lower4GiB is the exclusive end of the reserved region.
const Lower4GiB = reservation.Lower4GiB

// Reason is why a reservation failed.
type Reason = reservation.Reason

const (
	AlreadyOccupied         = reservation.AlreadyOccupied
	PlatformDenied          = reservation.PlatformDenied
	UnsupportedAddressWidth = reservation.UnsupportedAddressWidth
)

// ReservationFailedError is returned by Emulation.Initialize and ReserveLower4.
type ReservationFailedError = reservation.ReservationFailedError

// Classification is the verdict on a memory fault.
type Classification = fault.Classification

const (
	Unclassifiable    = fault.Unclassifiable
	InSandboxBoundary = fault.InSandboxBoundary
	OutsideBoundary   = fault.OutsideBoundary
)

// Access is the kind of a faulting access.
type Access = fault.Access

const (
	AccessUnknown = fault.AccessUnknown
	AccessRead    = fault.AccessRead
	AccessWrite   = fault.AccessWrite
	AccessExecute = fault.AccessExecute
)

// Record describes one fault.
type Record = fault.Record

// Trap is returned by Emulation.Call when sandboxed code faulted inside the
// reserved region.
type Trap = fault.Trap

// FatalFaultError describes a fault outside the reserved region or outside
// the Reserved window.
type FatalFaultError = fault.FatalFaultError

var (
	ErrReservationFailed       = reservation.ErrReservationFailed
	ErrNotInitialized          = reservation.ErrNotInitialized
	ErrReleased                = reservation.ErrReleased
	ErrInvalidTransition       = reservation.ErrInvalidTransition
	ErrRegionTampered          = reservation.ErrRegionTampered
	ErrOutOfBoundsMemoryAccess = fault.ErrOutOfBoundsMemoryAccess
	ErrFatalFault              = fault.ErrFatalFault
)

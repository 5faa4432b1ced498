// Package reservation claims the low 4GiB of the process's address space
// with no access, and records the reservation for fault classification.
package reservation

import (
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/tetratelabs/hfiemu/internal/platform"
)

// AddressSpace is the part of the platform the Reserver needs.
// platform.Host is the implementation for the current process.
type AddressSpace interface {
	// Reserve maps [base, base+length) no-access, failing with
	// platform.ErrOccupied instead of replacing or relocating.
	Reserve(base, length uintptr) error
	// Release unmaps a range returned by Reserve.
	Release(base, length uintptr) error
	// MinAddress is the lowest address a process can map.
	MinAddress() uintptr
	// PointerBits is 32 or 64.
	PointerBits() int
	// Mappings returns the process mapping table or platform.ErrNoMappingTable.
	Mappings() ([]platform.Mapping, error)
}

// Observer is notified after every successful state change.
type Observer interface {
	ReservationChanged(state State, region Region)
}

// Reserver owns the reservation. It is the only writer of its Registry.
//
// Initialize and Release are not safe for concurrent use: they run once on
// the bootstrap goroutine, before any sandboxed code and after all of it.
type Reserver struct {
	registry        *Registry
	space           AddressSpace
	logger          logrus.FieldLogger
	observer        Observer
	reportConflicts bool
}

// Option configures a Reserver.
type Option func(*Reserver)

// WithLogger sets the logger for lifecycle messages.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Reserver) {
		r.logger = logger
	}
}

// WithObserver sets the Observer of state changes.
func WithObserver(o Observer) Option {
	return func(r *Reserver) {
		r.observer = o
	}
}

// WithConflictReport controls whether a failed reservation reads the mapping
// table to name what occupies the region.
func WithConflictReport(enabled bool) Option {
	return func(r *Reserver) {
		r.reportConflicts = enabled
	}
}

// NewReserver returns a Reserver recording into registry.
func NewReserver(registry *Registry, space AddressSpace, opts ...Option) *Reserver {
	r := &Reserver{
		registry: registry,
		space:    space,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry this Reserver records into.
func (r *Reserver) Registry() *Registry {
	return r.registry
}

// Initialize reserves [0, 4GiB) with no access. It is idempotent while
// Reserved and fails after Released.
//
// The range is reserved exactly or not at all. On failure the error is a
// *ReservationFailedError and the state stays Unreserved.
func (r *Reserver) Initialize() error {
	switch s := r.registry.CurrentState(); s {
	case Reserved:
		return nil
	case Released:
		_, err := s.Transition(Reserved)
		return err
	}

	region := Region{Start: 0, End: Lower4GiB}
	if bits := r.space.PointerBits(); bits < 64 {
		return &ReservationFailedError{
			Reason: UnsupportedAddressWidth,
			Region: region,
			Err:    fmt.Errorf("%d-bit address space has no room outside the low 4GiB", bits),
		}
	}
	region.MapStart = uint64(r.space.MinAddress())

	if region.Mapped() {
		if err := r.space.Reserve(uintptr(region.MapStart), uintptr(region.MappedLen())); err != nil {
			return r.failed(region, err)
		}
	}

	if err := r.registry.markReserved(region); err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"start":     fmt.Sprintf("%#x", region.Start),
		"end":       fmt.Sprintf("%#x", region.End),
		"map_start": fmt.Sprintf("%#x", region.MapStart),
		"size":      units.BytesSize(float64(region.MappedLen())),
	}).Info("reserved low address space for HFI emulation")
	r.notify(Reserved, region)
	return nil
}

func (r *Reserver) failed(region Region, err error) error {
	e := &ReservationFailedError{Region: region, Err: err}
	switch {
	case errors.Is(err, platform.ErrOccupied):
		e.Reason = AlreadyOccupied
		if r.reportConflicts {
			if maps, mapsErr := r.space.Mappings(); mapsErr == nil {
				e.Conflicts = platform.Overlapping(maps, uintptr(region.MapStart), uintptr(region.End))
			} else if !errors.Is(mapsErr, platform.ErrNoMappingTable) {
				r.logger.WithError(mapsErr).Debug("reading mapping table")
			}
		}
	default:
		e.Reason = PlatformDenied
	}
	return e
}

// Release unmaps the region and moves Reserved to Released. Only valid while
// Reserved. If unmapping fails the state stays Reserved, as the region is
// still no-access.
func (r *Reserver) Release() error {
	state, region := r.registry.Snapshot()
	if _, err := state.Transition(Released); err != nil {
		return err
	}
	if region.Mapped() {
		if err := r.space.Release(uintptr(region.MapStart), uintptr(region.MappedLen())); err != nil {
			return fmt.Errorf("releasing %s: %w", region, err)
		}
	}
	if err := r.registry.markReleased(); err != nil {
		return err
	}
	r.logger.WithField("start", fmt.Sprintf("%#x", region.MapStart)).Debug("released low address space")
	r.notify(Released, region)
	return nil
}

// Audit checks the reservation is still one unbroken no-access range. It is
// a no-op where the platform has no mapping table.
func (r *Reserver) Audit() error {
	state, region := r.registry.Snapshot()
	switch state {
	case Unreserved:
		return ErrNotInitialized
	case Released:
		return ErrReleased
	}
	if !region.Mapped() {
		return nil
	}

	maps, err := r.space.Mappings()
	if err != nil {
		if errors.Is(err, platform.ErrNoMappingTable) {
			return nil
		}
		return err
	}

	start, end := uintptr(region.MapStart), uintptr(region.End)
	next := start
	for _, m := range platform.Overlapping(maps, start, end) {
		if !m.NoAccess() {
			return fmt.Errorf("%w: %s", ErrRegionTampered, m)
		}
		if m.Start > next {
			return fmt.Errorf("%w: unmapped gap at [%#x, %#x)", ErrRegionTampered, next, m.Start)
		}
		next = m.End
	}
	if next < end {
		return fmt.Errorf("%w: unmapped gap at [%#x, %#x)", ErrRegionTampered, next, end)
	}
	return nil
}

func (r *Reserver) notify(state State, region Region) {
	if r.observer != nil {
		r.observer.ReservationChanged(state, region)
	}
}

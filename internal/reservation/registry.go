package reservation

import (
	"errors"
	"sync/atomic"
)

// Registry records the reservation state and region bounds.
//
// Reads take no lock and allocate nothing, so the fault path can use them.
// region is written once, before state leaves Unreserved, and the atomic
// state store publishes it.
type Registry struct {
	state  atomic.Uint32
	region Region
}

// NewRegistry returns a Registry in the Unreserved state.
func NewRegistry() *Registry {
	return &Registry{}
}

// CurrentState returns the current reservation state.
func (r *Registry) CurrentState() State {
	return State(r.state.Load())
}

// RegionBounds returns the reserved region, or ErrNotInitialized while
// Unreserved. The bounds remain readable after release.
func (r *Registry) RegionBounds() (Region, error) {
	if r.CurrentState() == Unreserved {
		return Region{}, ErrNotInitialized
	}
	return r.region, nil
}

// Snapshot returns the state and the region with a single atomic load. The
// region is the zero value while Unreserved.
func (r *Registry) Snapshot() (State, Region) {
	s := r.CurrentState()
	if s == Unreserved {
		return s, Region{}
	}
	return s, r.region
}

func (r *Registry) markReserved(region Region) error {
	current := r.CurrentState()
	if _, err := current.Transition(Reserved); err != nil {
		return err
	}
	if current == Reserved {
		if region != r.region {
			panic(errors.New("BUG: region bounds changed while reserved"))
		}
		return nil
	}
	r.region = region
	r.state.Store(uint32(Reserved))
	return nil
}

func (r *Registry) markReleased() error {
	next, err := r.CurrentState().Transition(Released)
	if err != nil {
		return err
	}
	r.state.Store(uint32(next))
	return nil
}

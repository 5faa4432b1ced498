// Package metrics exports the reservation state and fault classifications
// as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tetratelabs/hfiemu/internal/fault"
	"github.com/tetratelabs/hfiemu/internal/reservation"
)

const namespace = "hfiemu"

// Metrics implements reservation.Observer and fault.Observer.
//
// Fault counters are bound to their label values up front so that counting a
// fault is a single atomic add.
type Metrics struct {
	state         prometheus.Gauge
	reservedBytes prometheus.Gauge
	faults        [3]prometheus.Counter
}

var (
	_ reservation.Observer = (*Metrics)(nil)
	_ fault.Observer       = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservation_state",
			Help:      "Low address space reservation state: 0 unreserved, 1 reserved, 2 released.",
		}),
		reservedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reserved_bytes",
			Help:      "Bytes of address space mapped no-access for HFI emulation.",
		}),
	}
	faults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "faults_total",
		Help:      "Memory faults intercepted, by classification.",
	}, []string{"classification"})
	for _, c := range []fault.Classification{fault.Unclassifiable, fault.InSandboxBoundary, fault.OutsideBoundary} {
		m.faults[c] = faults.WithLabelValues(c.String())
	}

	for _, c := range []prometheus.Collector{m.state, m.reservedBytes, faults} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ReservationChanged implements reservation.Observer
func (m *Metrics) ReservationChanged(state reservation.State, region reservation.Region) {
	m.state.Set(float64(state))
	if state == reservation.Reserved {
		m.reservedBytes.Set(float64(region.MappedLen()))
	} else {
		m.reservedBytes.Set(0)
	}
}

// FaultClassified implements fault.Observer
func (m *Metrics) FaultClassified(c fault.Classification) {
	if int(c) < len(m.faults) {
		m.faults[c].Inc()
	}
}

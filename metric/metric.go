// Package metric exposes the naming server's Prometheus instrumentation:
// lock wait time, replication activity, and registration duplicates.
// These are observability only and participate in none of spec.md's
// invariants.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the naming server's metric collectors. A nil *Registry
// is valid everywhere it is accepted; all methods on it are no-ops, so
// callers need not special-case a server run without metrics.
type Registry struct {
	lockWait                 *prometheus.HistogramVec
	replicationCopies        prometheus.Counter
	replicationInvalidations prometheus.Counter
	registrationDuplicates   prometheus.Counter
}

// NewRegistry constructs a Registry and registers its collectors with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "distfs",
			Subsystem: "naming",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting to acquire a path lock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		replicationCopies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distfs",
			Subsystem: "naming",
			Name:      "replication_copies_total",
			Help:      "Number of successful replicate-on-read copies.",
		}),
		replicationInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distfs",
			Subsystem: "naming",
			Name:      "replication_invalidations_total",
			Help:      "Number of invalidate-on-write rounds.",
		}),
		registrationDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distfs",
			Subsystem: "naming",
			Name:      "registration_duplicates_total",
			Help:      "Number of paths returned for local deletion by register.",
		}),
	}
	reg.MustRegister(m.lockWait, m.replicationCopies, m.replicationInvalidations, m.registrationDuplicates)
	return m
}

// ObserveLockWait records how long an acquire call waited before becoming
// runnable.
func (m *Registry) ObserveLockWait(exclusive bool, d time.Duration) {
	if m == nil {
		return
	}
	mode := "shared"
	if exclusive {
		mode = "exclusive"
	}
	m.lockWait.WithLabelValues(mode).Observe(d.Seconds())
}

// IncCopy implements replication.Metrics.
func (m *Registry) IncCopy() {
	if m == nil {
		return
	}
	m.replicationCopies.Inc()
}

// IncInvalidation implements replication.Metrics.
func (m *Registry) IncInvalidation() {
	if m == nil {
		return
	}
	m.replicationInvalidations.Inc()
}

// AddRegistrationDuplicates records how many paths a register call
// returned for local deletion.
func (m *Registry) AddRegistrationDuplicates(n int) {
	if m == nil || n == 0 {
		return
	}
	m.registrationDuplicates.Add(float64(n))
}

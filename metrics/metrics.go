// Package metrics wires Prometheus counters into the mount's dispatch
// loop and the step engine's commit/interrupt paths: one Collector struct
// holding pre-registered vectors for per-task-path step lifecycle counts.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the counters a Mount and Worker report against. Callers
// construct one with NewCollector and register it with a
// prometheus.Registerer (or leave it unregistered for a no-op sink in
// tests that only inspect In-memory totals via the returned counters).
type Collector struct {
	StepsCommitted        *prometheus.CounterVec
	InterruptsRaised      *prometheus.CounterVec
	TaskInProgressSkipped *prometheus.CounterVec
	Publishes             prometheus.Counter
	ExecutionsDisposed    prometheus.Counter
}

// NewCollector builds a Collector (namespace_subsystem_name naming) and
// registers every metric with reg. Passing a prometheus.NewRegistry()
// (rather than the global DefaultRegisterer) keeps multiple Collectors in
// the same process from colliding.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		StepsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepflow",
			Subsystem: "engine",
			Name:      "steps_committed_total",
			Help:      "Number of step results committed, by function id.",
		}, []string{"function_id"}),
		InterruptsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepflow",
			Subsystem: "engine",
			Name:      "interrupts_raised_total",
			Help:      "Number of Interrupt suspensions raised, by reason.",
		}, []string{"reason"}),
		TaskInProgressSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepflow",
			Subsystem: "engine",
			Name:      "task_in_progress_skipped_total",
			Help:      "Number of times a task was found already in-progress by a concurrent delivery.",
		}, []string{"function_id"}),
		Publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stepflow",
			Subsystem: "worker",
			Name:      "publishes_total",
			Help:      "Number of top-level event publishes.",
		}),
		ExecutionsDisposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stepflow",
			Subsystem: "engine",
			Name:      "executions_disposed_total",
			Help:      "Number of executions disposed after running to completion.",
		}),
	}

	if reg != nil {
		reg.MustRegister(c.StepsCommitted, c.InterruptsRaised, c.TaskInProgressSkipped, c.Publishes, c.ExecutionsDisposed)
	}
	return c
}

// Package metrics exposes the Prometheus metrics this server actually
// emits, using promauto with a namespace/subsystem convention trimmed to
// the handful of subsystems present here.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector this server registers.
type Metrics struct {
	SessionsActive     prometheus.Gauge
	QueueOverflowTotal *prometheus.CounterVec
	SnapshotsDropped   prometheus.Counter
	TickDuration       prometheus.Histogram
	MissionsLaunched   *prometheus.CounterVec
	PlannerRequests    *prometheus.CounterVec
	PlannerDuration    *prometheus.HistogramVec
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Get returns the process-wide metrics instance, constructing it (and
// registering every collector with the default registry) on first use.
func Get() *Metrics {
	globalOnce.Do(func() {
		global = newMetrics()
	})
	return global
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbit",
		Subsystem: "server",
		Name:      "sessions_active",
		Help:      "Number of currently connected streaming sessions.",
	})

	m.QueueOverflowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbit",
		Subsystem: "server",
		Name:      "queue_overflow_total",
		Help:      "Count of dropped messages due to a full bounded queue, by queue name.",
	}, []string{"queue"})

	m.SnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orbit",
		Subsystem: "server",
		Name:      "snapshots_dropped_total",
		Help:      "Count of state snapshots dropped because a session's egress queue was full.",
	})

	m.TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orbit",
		Subsystem: "simulation",
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock time spent building one simulation tick's snapshot.",
		Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	m.MissionsLaunched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbit",
		Subsystem: "simulation",
		Name:      "missions_launched_total",
		Help:      "Count of launched missions, by departure/arrival body pair.",
	}, []string{"departure_body", "arrival_body"})

	m.PlannerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbit",
		Subsystem: "planner",
		Name:      "requests_total",
		Help:      "Count of planner requests, by operation and outcome.",
	}, []string{"operation", "outcome"})

	m.PlannerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orbit",
		Subsystem: "planner",
		Name:      "request_duration_seconds",
		Help:      "Planner request duration in seconds, by operation.",
		Buckets:   []float64{.001, .01, .1, .5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	return m
}

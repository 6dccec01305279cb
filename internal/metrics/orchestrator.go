package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zsync",
		Subsystem: "orchestrator",
		Name:      "sync_total",
		Help:      "Count of Sync() invocations.",
	}, []string{"status"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zsync",
		Subsystem: "orchestrator",
		Name:      "sync_duration_seconds",
		Help:      "Duration of a full Sync() invocation.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"status"})

	chunkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zsync",
		Subsystem: "orchestrator",
		Name:      "chunk_total",
		Help:      "Count of chunk persistence worker runs.",
	}, []string{"status"})

	chunkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zsync",
		Subsystem: "orchestrator",
		Name:      "chunk_duration_seconds",
		Help:      "Duration of a chunk persistence worker run.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	chunkSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zsync",
		Subsystem: "orchestrator",
		Name:      "chunk_size",
		Help:      "Number of heights in a chunk passed to a persistence worker.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{})
)

// Orchestrator tracks metrics for the Sync Orchestrator.
type Orchestrator struct{}

// NewOrchestrator constructs an Orchestrator metrics collector.
func NewOrchestrator() *Orchestrator { return &Orchestrator{} }

// ObserveSync records one Sync() invocation's outcome and duration.
func (m *Orchestrator) ObserveSync(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	syncTotal.WithLabelValues(status).Inc()
	syncDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveChunk records one chunk persistence worker run's outcome,
// duration and width.
func (m *Orchestrator) ObserveChunk(err error, heightCount int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	chunkTotal.WithLabelValues(status).Inc()
	chunkDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	chunkSize.WithLabelValues().Observe(float64(heightCount))
}

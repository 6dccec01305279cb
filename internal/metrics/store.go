package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zsync",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Count of Postgres store operations.",
	}, []string{"operation", "status"})

	storeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zsync",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Postgres store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// Store tracks metrics for Postgres store operations.
type Store struct{}

// NewStore constructs a Store metrics collector.
func NewStore() *Store { return &Store{} }

// Observe records one store operation's outcome and duration.
func (m *Store) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeRequestsTotal.WithLabelValues(operation, status).Inc()
	storeRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

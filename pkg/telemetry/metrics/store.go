package metrics

import (
	"strconv"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks store calls and stats queries.
//
// Metrics:
//   - arbiter_store_operation_duration_seconds{backend, operation}
//   - arbiter_store_errors_total{backend, operation, retryable}
//   - arbiter_stats_queries_total{result}
//   - arbiter_stats_query_duration_seconds
type StoreMetrics struct {
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	statsQueries      *prometheus.CounterVec
	statsDuration     prometheus.Histogram
}

// NewStoreMetrics creates and registers store metrics with the provided registry.
func NewStoreMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StoreMetrics {
	sm := &StoreMetrics{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   cfg.DurationBuckets,
		}, []string{"backend", "operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "store_errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"backend", "operation", "retryable"}),
		statsQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "stats_queries_total",
			Help:      "Total number of stats overview queries by result",
		}, []string{"result"}),
		statsDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "stats_query_duration_seconds",
			Help:      "Duration of stats overview queries in seconds",
			Buckets:   cfg.DurationBuckets,
		}),
	}

	registry.MustRegister(
		sm.operationDuration,
		sm.errorsTotal,
		sm.statsQueries,
		sm.statsDuration,
	)

	return sm
}

// Observe records one store call.
func (sm *StoreMetrics) Observe(backend, operation string, duration time.Duration, err error) {
	sm.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil && apperrors.KindOf(err) == apperrors.KindStore {
		sm.errorsTotal.WithLabelValues(backend, operation, strconv.FormatBool(apperrors.IsRetryable(err))).Inc()
	}
}

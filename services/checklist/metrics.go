package checklist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"checkround/pkg/store"
)

// Metrics records repository activity on a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeErrors *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkround",
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository operations by name and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "checkround",
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Repository operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"op"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkround",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Entity store failures by container and kind.",
		}, []string{"op", "container", "kind"}),
	}
	m.registry.MustRegister(m.operations, m.duration, m.storeErrors)
	return m
}

// Gatherer exposes the registry for export.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// StoreError matches the store.WithErrorHook signature.
func (m *Metrics) StoreError(op string, c store.Container, kind store.Kind) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op, string(c), kind.String()).Inc()
}

func (m *Metrics) observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

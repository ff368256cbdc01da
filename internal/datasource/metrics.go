package datasource

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts store operations. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Operations *prometheus.CounterVec // calls by source, kind and op
	Keys       *prometheus.CounterVec // keys touched
	Errors     *prometheus.CounterVec // failed calls
	Flushes    *prometheus.CounterVec // lifecycle flushes by source
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	labels := []string{"source", "kind", "op"}
	return &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bibnet",
			Subsystem: "datasource",
			Name:      "operations_total",
			Help:      "Total data source operations",
		}, labels),
		Keys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bibnet",
			Subsystem: "datasource",
			Name:      "keys_total",
			Help:      "Total keys resolved by data source operations",
		}, labels),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bibnet",
			Subsystem: "datasource",
			Name:      "errors_total",
			Help:      "Total failed data source operations",
		}, labels),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bibnet",
			Subsystem: "datasource",
			Name:      "flushes_total",
			Help:      "Total flushes of file-backed data sources",
		}, []string{"source"}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Operations, m.Keys, m.Errors, m.Flushes} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one operation over n keys.
func (m *Metrics) Observe(source, kind, op string, n int, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(source, kind, op).Inc()
	if n > 0 {
		m.Keys.WithLabelValues(source, kind, op).Add(float64(n))
	}
	if err != nil {
		m.Errors.WithLabelValues(source, kind, op).Inc()
	}
}

// ObserveFlush records one flush.
func (m *Metrics) ObserveFlush(source string) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(source).Inc()
}

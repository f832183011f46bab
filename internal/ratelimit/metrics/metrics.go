package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks limiter decisions. Methods are nil-safe.
type Metrics struct {
	Rejected       *prometheus.CounterVec
	StoreErrors    prometheus.Counter
	FallbackChecks prometheus.Counter
	CircuitOpen    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"scope"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "commune_ratelimit_store_errors_total",
			Help: "Failed checks against the primary bucket store",
		}),
		FallbackChecks: f.NewCounter(prometheus.CounterOpts{
			Name: "commune_ratelimit_fallback_checks_total",
			Help: "Checks answered by the in-memory fallback store",
		}),
		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "commune_ratelimit_circuit_open",
			Help: "1 while the primary bucket store is bypassed",
		}),
	}
}

func (m *Metrics) IncRejected(scope string) {
	if m != nil {
		m.Rejected.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) IncStoreErrors() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

func (m *Metrics) IncFallbackChecks() {
	if m != nil {
		m.FallbackChecks.Inc()
	}
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
	} else {
		m.CircuitOpen.Set(0)
	}
}

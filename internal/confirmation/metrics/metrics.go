package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eviction reasons.
const (
	EvictionCapacity = "capacity"
	EvictionExpired  = "expired"
)

// Metrics provides observability for the confirmation module.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	Started         prometheus.Counter
	Outcomes        *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	Evictions       *prometheus.CounterVec
	Pending         prometheus.Gauge
	ConfirmLatency  prometheus.Histogram
}

// New registers the confirmation metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Started: f.NewCounter(prometheus.CounterOpts{
			Name: "commune_confirmations_started_total",
			Help: "Confirmation processes started (link mailed or attempted)",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_confirmation_outcomes_total",
			Help: "Confirmation attempts by outcome",
		}, []string{"outcome"}), // confirmed, rejected, expired, failed
		HandlerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_confirmation_handler_failures_total",
			Help: "Handler invocations that returned an error or panicked",
		}, []string{"kind"}), // error, panic
		Evictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_confirmation_evictions_total",
			Help: "Pending confirmations dropped without being confirmed",
		}, []string{"reason"}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "commune_confirmations_pending",
			Help: "Pending confirmations currently held in memory",
		}),
		ConfirmLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "commune_confirmation_confirm_duration_seconds",
			Help:    "Duration of confirm calls including handler execution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncStarted() {
	if m != nil {
		m.Started.Inc()
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncHandlerFailure(kind string) {
	if m != nil {
		m.HandlerFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) AddEvictions(reason string, n int) {
	if m != nil && n > 0 {
		m.Evictions.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}

func (m *Metrics) ObserveConfirmLatency(d time.Duration) {
	if m != nil {
		m.ConfirmLatency.Observe(d.Seconds())
	}
}

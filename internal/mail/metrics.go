package mail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts mail deliveries. Methods are nil-safe.
type Metrics struct {
	Deliveries *prometheus.CounterVec
}

// NewMetrics registers the mail metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Deliveries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "commune_mail_deliveries_total",
			Help: "Mail deliveries by template and outcome",
		}, []string{"template", "outcome"}), // sent, render_failed, send_failed
	}
}

func (m *Metrics) inc(id TemplateID, outcome string) {
	if m != nil {
		m.Deliveries.WithLabelValues(string(id), outcome).Inc()
	}
}

package sending

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"

	outcomeDustAmount  = "dust_amount"
	outcomeBuildFailed = "build_failed"
)

// Metrics tracks send attempts. A nil *Metrics records nothing.
type Metrics struct {
	attempts *prometheus.CounterVec
	pending  prometheus.Gauge
}

// NewMetrics creates send metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sendcoins",
				Name:      "send_attempts_total",
				Help:      "Send attempts by outcome.",
			},
			[]string{"outcome"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sendcoins",
			Name:      "pending_requests",
			Help:      "Send requests waiting for a signing outcome.",
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setPending(pending bool) {
	if m == nil {
		return
	}
	if pending {
		m.pending.Set(1)
	} else {
		m.pending.Set(0)
	}
}

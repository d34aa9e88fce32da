package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment lifecycle activity.
type PaymentMetrics struct {
	transitions   *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	pollAttempts  prometheus.Histogram
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment status transitions applied, labeled by from/to status.",
	}, []string{"from", "to"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events received, labeled by event kind and outcome.",
	}, []string{"kind", "result"})
	pollAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_poll_attempts",
		Help:    "Attempts spent per status poll before reaching a terminal state.",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100, 300},
	})
	reg.MustRegister(transitions, webhookEvents, pollAttempts)
	return &PaymentMetrics{
		transitions:   transitions,
		webhookEvents: webhookEvents,
		pollAttempts:  pollAttempts,
	}
}

// ObserveTransition counts an applied status transition.
func (p *PaymentMetrics) ObserveTransition(from, to string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveWebhookEvent counts a processed webhook event by kind and result.
func (p *PaymentMetrics) ObserveWebhookEvent(kind, result string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// ObservePollAttempts records how many attempts a poll consumed.
func (p *PaymentMetrics) ObservePollAttempts(attempts int) {
	if p == nil || p.pollAttempts == nil {
		return
	}
	p.pollAttempts.Observe(float64(attempts))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes recorded by SubscriptionMetrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// SubscriptionMetrics records subscription command outcomes and latency.
// A nil receiver is a no-op.
type SubscriptionMetrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	revenue  *prometheus.CounterVec
}

// NewSubscriptionMetrics registers the subscription metrics on reg. A nil
// registerer yields inert metrics.
func NewSubscriptionMetrics(reg prometheus.Registerer) *SubscriptionMetrics {
	if reg == nil {
		return &SubscriptionMetrics{}
	}
	factory := promauto.With(reg)
	return &SubscriptionMetrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_commands_total",
			Help:      "Subscription commands by name and outcome.",
		}, []string{"command", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "subscription_command_duration_seconds",
			Help:      "Latency of subscription commands in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		revenue: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_settled_amount_total",
			Help:      "Sum of completed payment amounts by currency.",
		}, []string{"currency"}),
	}
}

// ObserveCommand records the outcome and duration of one command.
func (m *SubscriptionMetrics) ObserveCommand(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	command = normalizeLabel(command)
	if m.commands != nil {
		m.commands.WithLabelValues(command, normalizeLabel(outcome)).Inc()
	}
	if m.duration != nil {
		m.duration.WithLabelValues(command).Observe(duration.Seconds())
	}
}

// AddSettled adds a completed payment amount. Negative amounts are ignored.
func (m *SubscriptionMetrics) AddSettled(currency string, amount float64) {
	if m == nil || m.revenue == nil || amount <= 0 {
		return
	}
	m.revenue.WithLabelValues(normalizeLabel(currency)).Add(amount)
}

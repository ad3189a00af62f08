package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for the payment orchestration flow.
type PaymentMetrics struct {
	intentsCreated *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	webhooks       *prometheus.CounterVec
	refunds        *prometheus.CounterVec
	payouts        *prometheus.CounterVec
	providerCalls  *prometheus.HistogramVec
	circuitState   *prometheus.GaugeVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	intentsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_created",
		Help: "Payment intents created, by provider.",
	}, []string{"provider"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intent_transitions",
		Help: "Applied payment intent status transitions.",
	}, []string{"from", "to"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Inbound provider webhook events, by outcome.",
	}, []string{"provider", "outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refund requests, by resulting status.",
	}, []string{"status"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payouts_total",
		Help: "Payout requests, by resulting status.",
	}, []string{"status"})
	providerCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Duration of outbound provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	circuitState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "provider_circuit_open",
		Help: "1 when the provider circuit breaker is open, 0 otherwise.",
	}, []string{"provider"})
	reg.MustRegister(intentsCreated, transitions, webhooks, refunds, payouts, providerCalls, circuitState)
	return &PaymentMetrics{
		intentsCreated: intentsCreated,
		transitions:    transitions,
		webhooks:       webhooks,
		refunds:        refunds,
		payouts:        payouts,
		providerCalls:  providerCalls,
		circuitState:   circuitState,
	}
}

// IncIntentCreated increments the created counter for the routed provider.
func (m *PaymentMetrics) IncIntentCreated(provider string) {
	if m == nil || m.intentsCreated == nil {
		return
	}
	m.intentsCreated.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncTransition increments the transition counter for an applied status change.
func (m *PaymentMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncWebhook increments the webhook counter for the given outcome.
func (m *PaymentMetrics) IncWebhook(provider, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncRefund increments the refund counter for the resulting status.
func (m *PaymentMetrics) IncRefund(status string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPayout increments the payout counter for the resulting status.
func (m *PaymentMetrics) IncPayout(status string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveProviderCall records the duration of one outbound provider call.
func (m *PaymentMetrics) ObserveProviderCall(provider, operation string, duration time.Duration) {
	if m == nil || m.providerCalls == nil {
		return
	}
	m.providerCalls.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

// SetCircuitOpen reflects the breaker state for the provider.
func (m *PaymentMetrics) SetCircuitOpen(provider string, open bool) {
	if m == nil || m.circuitState == nil {
		return
	}
	value := 0.0
	if open {
		value = 1.0
	}
	m.circuitState.WithLabelValues(normalizeLabel(provider)).Set(value)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

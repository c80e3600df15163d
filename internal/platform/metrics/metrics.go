// Package metrics exposes Prometheus collectors for the settlement service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_bookings_completed_total",
			Help: "Total number of bookings settled into sitter wallets",
		},
	)

	EarningsCreditedMinorUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_earnings_credited_minor_units_total",
			Help: "Sum of sitter earnings credited to pending balances",
		},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"refund"},
	)

	MaturationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_maturations_total",
			Help: "Pending earnings processed by the sweeper",
		},
		[]string{"outcome"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settlement_sweep_duration_seconds",
			Help:    "Duration of one maturation sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_withdrawals_total",
			Help: "Withdrawal requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_webhook_events_total",
			Help: "Payment gateway webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_outbox_published_total",
			Help: "Outbox messages handed to Kafka by outcome",
		},
		[]string{"outcome"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBookingCompleted counts a settled booking and the earnings it credited
func RecordBookingCompleted(sitterEarnings int64) {
	BookingsCompletedTotal.Inc()
	EarningsCreditedMinorUnits.Add(float64(sitterEarnings))
}

func RecordBookingCancellation(refunded bool) {
	label := "none"
	if refunded {
		label = "requested"
	}
	BookingCancellationsTotal.WithLabelValues(label).Inc()
}

func RecordMaturation(outcome string) {
	MaturationsTotal.WithLabelValues(outcome).Inc()
}

func RecordSweep(seconds float64) {
	SweepDuration.Observe(seconds)
}

func RecordWithdrawal(method, outcome string) {
	WithdrawalsTotal.WithLabelValues(method, outcome).Inc()
}

func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func RecordOutboxPublish(outcome string) {
	OutboxPublishedTotal.WithLabelValues(outcome).Inc()
}

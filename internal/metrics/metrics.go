// Package metrics holds the Prometheus collectors for the checkout workflow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RegistrationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootcamp_registrations_created_total",
			Help: "Registrations created in the pending state",
		},
	)

	RegistrationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcamp_registration_transitions_total",
			Help: "Registration status transitions by target status",
		},
		[]string{"status"},
	)

	PaymentIntentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootcamp_payment_intents_created_total",
			Help: "Payment intents created at the gateway",
		},
	)

	GatewayErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcamp_gateway_errors_total",
			Help: "Payment gateway call failures by operation",
		},
		[]string{"op"},
	)

	GatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bootcamp_gateway_request_duration_seconds",
			Help:    "Payment gateway call latency by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	UnmatchedPayments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bootcamp_unmatched_payments_total",
			Help: "Captured payments that no pending registration accepted",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcamp_notifications_total",
			Help: "Confirmation emails by outcome",
		},
		[]string{"result"},
	)
)

// Register registers all collectors with the given registerer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RegistrationsCreated,
		RegistrationTransitions,
		PaymentIntentsCreated,
		GatewayErrors,
		GatewayDuration,
		NotificationsTotal,
		UnmatchedPayments,
	)
}

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TicketsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_tickets_issued_total",
			Help: "Total number of OTP tickets issued",
		},
		[]string{"purpose"},
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_ticket_verifications_total",
			Help: "Total number of ticket verifications by outcome",
		},
		[]string{"purpose", "outcome"},
	)

	RiskRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_risk_rejections_total",
			Help: "Total number of requests vetoed by the risk assessment",
		},
	)

	NotificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_notification_failures_total",
			Help: "Total number of OTP deliveries that failed",
		},
	)

	RiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parking_fingerprint_risk_score",
			Help:    "Distribution of device risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	TicketsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_tickets_swept_total",
			Help: "Total number of expired tickets removed by the sweeper",
		},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parking_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(TicketsIssuedTotal)
	prometheus.MustRegister(VerificationsTotal)
	prometheus.MustRegister(RiskRejectionsTotal)
	prometheus.MustRegister(NotificationFailuresTotal)
	prometheus.MustRegister(RiskScore)
	prometheus.MustRegister(TicketsSweptTotal)
	prometheus.MustRegister(HTTPRequestDuration)
}

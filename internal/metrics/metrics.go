// Package metrics exposes the Prometheus instrumentation for chaindesk.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the service
type Registry struct {
	// Inbound request metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	// Upstream call metrics
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	// Paid endpoint metrics
	PaymentChallenges prometheus.Counter
	PaymentsAccepted  prometheus.Counter
	PaymentsRejected  prometheus.Counter

	reg *prometheus.Registry
}

// NewRegistry creates a registry with all chaindesk metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chaindesk_request_duration_seconds",
				Help:    "Duration of inbound HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"route", "status"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaindesk_requests_total",
				Help: "Total inbound HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chaindesk_upstream_duration_seconds",
				Help:    "Duration of upstream API calls in seconds",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"provider", "outcome"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chaindesk_upstream_errors_total",
				Help: "Total upstream call failures by provider",
			},
			[]string{"provider"},
		),
		PaymentChallenges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chaindesk_payment_challenges_total",
				Help: "Total 402 payment challenges issued",
			},
		),
		PaymentsAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chaindesk_payments_accepted_total",
				Help: "Total payment proofs accepted",
			},
		),
		PaymentsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chaindesk_payments_rejected_total",
				Help: "Total payment proofs rejected as malformed or mismatched",
			},
		),
		reg: prometheus.NewRegistry(),
	}

	r.reg.MustRegister(
		r.RequestDuration,
		r.RequestsTotal,
		r.UpstreamDuration,
		r.UpstreamErrors,
		r.PaymentChallenges,
		r.PaymentsAccepted,
		r.PaymentsRejected,
	)

	return r
}

// ObserveRequest records one completed inbound request
func (r *Registry) ObserveRequest(route, status string, duration time.Duration) {
	r.RequestDuration.WithLabelValues(route, status).Observe(duration.Seconds())
	r.RequestsTotal.WithLabelValues(route, status).Inc()
}

// ObserveUpstream records one completed upstream call
func (r *Registry) ObserveUpstream(provider string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		r.UpstreamErrors.WithLabelValues(provider).Inc()
	}
	r.UpstreamDuration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// Handler returns the Prometheus exposition endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

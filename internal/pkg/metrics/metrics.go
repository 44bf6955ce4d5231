package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for checkout and webhook traffic.
type Metrics struct {
	WebhookNotificationsTotal *prometheus.CounterVec
	SessionCreationsTotal     *prometheus.CounterVec
	SessionCreationDuration   prometheus.Histogram
	HTTPRequestsTotal         *prometheus.CounterVec
	HTTPRequestDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		WebhookNotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_notifications_total",
				Help: "Total number of payment notifications received, by reconciliation result",
			},
			[]string{"result"},
		),
		SessionCreationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_session_creations_total",
				Help: "Total number of checkout session creation attempts, by outcome",
			},
			[]string{"outcome"},
		),
		SessionCreationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "checkout_session_creation_duration_seconds",
				Help:    "Duration of checkout session creation calls to the processor",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
	}
}

// Register registers all collectors with r.
func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.WebhookNotificationsTotal)
	r.MustRegister(m.SessionCreationsTotal)
	r.MustRegister(m.SessionCreationDuration)
	r.MustRegister(m.HTTPRequestsTotal)
	r.MustRegister(m.HTTPRequestDuration)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	SecretsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "secrets_created_total",
			Help: "Total number of secrets created.",
		},
	)

	DisclosureAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_disclosure_attempts_total",
			Help: "Disclosure attempts by outcome.",
		},
		[]string{"outcome"}, // success, not_found, invalid_password, error
	)

	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signups_total",
			Help: "Account signups by result.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		SecretsCreatedTotal,
		DisclosureAttemptsTotal,
		SignupsTotal,
		LoginsTotal,
	)
}

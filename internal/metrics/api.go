package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter self-metrics. Quota gauges are produced per scrape by the presenter.
var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Name:      "api_requests_total",
			Help:      "Total number of GitHub API requests",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratewatch",
			Name:      "api_request_duration_seconds",
			Help:      "GitHub API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	TokenMintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Name:      "token_mints_total",
			Help:      "Access token mint attempts by outcome",
		},
		[]string{"result"}, // "exchanged" / "fallback" / "jwt" / "error"
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ratewatch",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a full poll cycle across all accounts",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PollAccountsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratewatch",
			Name:      "poll_accounts_total",
			Help:      "Accounts checked per poll cycle by outcome",
		},
		[]string{"result"}, // "ok" / "failed"
	)
)

// Token mint outcomes.
const (
	MintExchanged = "exchanged"
	MintFallback  = "fallback"
	MintJWT       = "jwt"
	MintError     = "error"
)

// Register registers all exporter self-metrics on reg. Registering twice on
// the same registry is a no-op; every other registration error panics.
func Register(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		APIRequestsTotal,
		APIRequestDuration,
		TokenMintsTotal,
		PollDuration,
		PollAccountsTotal,
		httpRequestDuration,
		httpRequestsTotal,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
}

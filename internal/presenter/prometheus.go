package presenter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	"github.com/kailas-cloud/ratewatch/internal/logger"
)

var (
	accountLabels  = []string{"account", "app_id", "installation_id"}
	resourceLabels = []string{"account", "app_id", "installation_id", "resource"}
)

var (
	restLimitDesc = prometheus.NewDesc("github_rate_limit_limit",
		"GitHub REST API rate limit per resource", resourceLabels, nil)
	restRemainingDesc = prometheus.NewDesc("github_rate_limit_remaining",
		"GitHub REST API requests remaining per resource", resourceLabels, nil)
	restUsedDesc = prometheus.NewDesc("github_rate_limit_used",
		"GitHub REST API requests used per resource", resourceLabels, nil)
	restResetDesc = prometheus.NewDesc("github_rate_limit_reset",
		"GitHub REST API rate limit reset time as Unix timestamp", resourceLabels, nil)
	accountUpDesc = prometheus.NewDesc("github_rate_limit_account_up",
		"Whether the last quota fetch for the account succeeded (1) or failed (0)", accountLabels, nil)
	gqlLimitDesc = prometheus.NewDesc("github_graphql_rate_limit_limit",
		"GitHub GraphQL API rate limit", accountLabels, nil)
	gqlRemainingDesc = prometheus.NewDesc("github_graphql_rate_limit_remaining",
		"GitHub GraphQL API points remaining", accountLabels, nil)
	gqlUsedDesc = prometheus.NewDesc("github_graphql_rate_limit_used",
		"GitHub GraphQL API points used", accountLabels, nil)
)

// Collector exposes one poll cycle's results as constant gauges.
type Collector struct {
	results domain.Results
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wraps results. The collector never refetches.
func NewCollector(results domain.Results) *Collector {
	return &Collector{results: results}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		restLimitDesc, restRemainingDesc, restUsedDesc, restResetDesc,
		accountUpDesc, gqlLimitDesc, gqlRemainingDesc, gqlUsedDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Failed categories are omitted.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range c.results.Names() {
		snap := c.results[name]
		info := snap.Account
		labels := []string{name, info.AppID, info.InstallationID}

		up := 0.0
		if snap.Healthy() {
			up = 1
		}
		ch <- prometheus.MustNewConstMetric(accountUpDesc, prometheus.GaugeValue, up, labels...)

		if limits, ok := snap.REST.Value(); ok {
			for resource, rl := range limits.Resources {
				rlabels := append(labels[:3:3], resource)
				ch <- prometheus.MustNewConstMetric(restLimitDesc, prometheus.GaugeValue, float64(rl.Limit), rlabels...)
				ch <- prometheus.MustNewConstMetric(restRemainingDesc, prometheus.GaugeValue, float64(rl.Remaining), rlabels...)
				ch <- prometheus.MustNewConstMetric(restUsedDesc, prometheus.GaugeValue, float64(rl.Used), rlabels...)
				ch <- prometheus.MustNewConstMetric(restResetDesc, prometheus.GaugeValue, float64(rl.Reset), rlabels...)
			}
		}

		if gql, ok := snap.GraphQL.Value(); ok {
			ch <- prometheus.MustNewConstMetric(gqlLimitDesc, prometheus.GaugeValue, float64(gql.Limit), labels...)
			ch <- prometheus.MustNewConstMetric(gqlRemainingDesc, prometheus.GaugeValue, float64(gql.Remaining), labels...)
			ch <- prometheus.MustNewConstMetric(gqlUsedDesc, prometheus.GaugeValue, float64(gql.Used), labels...)
		}
	}
}

// Checker runs one poll cycle.
type Checker interface {
	CheckAll(ctx context.Context) domain.Results
}

// Handler serves the exposition of a fresh poll cycle per request, together
// with anything registered on self. self may be nil. A positive timeout bounds
// the cycle; accounts not done by then are exported as down. It must stay
// below the server's write timeout or the response is cut off.
func Handler(checker Checker, self prometheus.Gatherer, timeout time.Duration, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.FromContextOr(r.Context(), log)

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		results := checker.CheckAll(ctx)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			l.Warn("Scrape deadline reached, exporting partial results",
				zap.Duration("timeout", timeout),
				zap.String("status", string(results.Health())),
			)
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(NewCollector(results))

		gatherers := prometheus.Gatherers{reg}
		if self != nil {
			gatherers = append(gatherers, self)
		}

		promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
			ErrorLog:      zap.NewStdLog(l),
			ErrorHandling: promhttp.ContinueOnError,
		}).ServeHTTP(w, r)
	})
}

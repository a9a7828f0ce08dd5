package domain

import "sort"

// RateLimit is one REST resource category counter.
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"` // epoch seconds
}

// RateLimits is the normalized /rate_limit response.
type RateLimits struct {
	Resources map[string]RateLimit `json:"resources"`
	Rate      *RateLimit           `json:"rate,omitempty"`
}

// GraphQLLimit is the GraphQL rateLimit object.
type GraphQLLimit struct {
	Limit     int    `json:"limit"`
	Cost      int    `json:"cost"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
	Used      int    `json:"used"`
	NodeCount int    `json:"nodeCount"`
}

// Snapshot is a point-in-time read of one account's quotas.
type Snapshot struct {
	Account AccountInfo
	REST    Result[RateLimits]
	GraphQL Result[GraphQLLimit]
}

// FailedSnapshot marks every fetch of the account as failed with err.
func FailedSnapshot(info AccountInfo, err error) Snapshot {
	return Snapshot{
		Account: info,
		REST:    Failed[RateLimits](err),
		GraphQL: Failed[GraphQLLimit](err),
	}
}

// Healthy reports whether every fetch for the account succeeded.
func (s Snapshot) Healthy() bool {
	return s.REST.Succeeded() && s.GraphQL.Succeeded()
}

// Results maps account name to its snapshot for one poll cycle.
type Results map[string]Snapshot

// Names returns account names in sorted order.
func (r Results) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthStatus summarizes a poll cycle.
type HealthStatus string

// HealthStatus values.
const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
	HealthError    HealthStatus = "error"
)

// Health returns ok when all accounts are healthy, error when none is, degraded otherwise.
func (r Results) Health() HealthStatus {
	healthy := 0
	for _, s := range r {
		if s.Healthy() {
			healthy++
		}
	}
	switch {
	case healthy == len(r):
		return HealthOK
	case healthy == 0:
		return HealthError
	default:
		return HealthDegraded
	}
}

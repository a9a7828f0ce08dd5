package quota

import (
	"context"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	"github.com/kailas-cloud/ratewatch/internal/usecase/token"
)

// API fetches quota counters with a ready bearer credential.
type API interface {
	RateLimit(ctx context.Context, bearer string) (domain.RateLimits, error)
	GraphQLRateLimit(ctx context.Context, bearer string) (domain.GraphQLLimit, error)
}

// TokenSource resolves the bearer credential for an account.
type TokenSource interface {
	AccessToken(ctx context.Context, h *token.Handle) (string, error)
}

package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	logpkg "github.com/kailas-cloud/ratewatch/internal/logger"
	"github.com/kailas-cloud/ratewatch/internal/usecase/token"
)

// Target binds an account's token handle to the API client it owns.
type Target struct {
	Handle *token.Handle
	API    API
}

// Name returns the account name of the target.
func (t *Target) Name() string { return t.Handle.Account().Name() }

// Service produces per-account quota snapshots.
type Service struct {
	tokens TokenSource
	logger *zap.Logger
}

// New creates a quota Service.
func New(tokens TokenSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tokens: tokens, logger: logger}
}

// Snapshot reads both quota endpoints for the target. A token failure fails
// the whole snapshot; otherwise each endpoint succeeds or fails on its own.
func (s *Service) Snapshot(ctx context.Context, t *Target) domain.Snapshot {
	info := t.Handle.Account().Info()
	log := logpkg.FromContextOr(ctx, s.logger).With(zap.String("account", info.Name))

	bearer, err := s.tokens.AccessToken(ctx, t.Handle)
	if err != nil {
		log.Error("Failed to obtain access token", zap.Error(err))
		return domain.FailedSnapshot(info, fmt.Errorf("access token: %w", err))
	}

	snap := domain.Snapshot{Account: info}

	if limits, err := t.API.RateLimit(ctx, bearer); err != nil {
		log.Warn("Rate limit check failed", zap.Error(err))
		snap.REST = domain.Failed[domain.RateLimits](err)
	} else {
		snap.REST = domain.OK(limits)
	}

	if gql, err := t.API.GraphQLRateLimit(ctx, bearer); err != nil {
		log.Warn("GraphQL rate limit check failed", zap.Error(err))
		snap.GraphQL = domain.Failed[domain.GraphQLLimit](err)
	} else {
		snap.GraphQL = domain.OK(gql)
	}

	return snap
}

package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	logpkg "github.com/kailas-cloud/ratewatch/internal/logger"
	"github.com/kailas-cloud/ratewatch/internal/metrics"
	"github.com/kailas-cloud/ratewatch/internal/usecase/quota"
)

// DefaultMaxConcurrency caps parallel account checks per cycle.
const DefaultMaxConcurrency = 10

// Service checks all configured accounts concurrently.
type Service struct {
	snapshots      Snapshotter
	targets        []*quota.Target
	maxConcurrency int
	logger         *zap.Logger
}

// New creates an aggregate Service over targets.
func New(snapshots Snapshotter, targets []*quota.Target, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		snapshots:      snapshots,
		targets:        targets,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         logger,
	}
}

// WithMaxConcurrency configures the worker pool width.
func (s *Service) WithMaxConcurrency(n int) *Service {
	if n > 0 {
		s.maxConcurrency = n
	}
	return s
}

// Len returns the number of configured accounts.
func (s *Service) Len() int { return len(s.targets) }

// CheckAll runs one poll cycle over every configured account.
func (s *Service) CheckAll(ctx context.Context) domain.Results {
	return s.Check(ctx, s.targets)
}

// Check fans out one task per target with at most min(len, maxConcurrency)
// running at once, and returns only after every task has finished. A failing
// or panicking task becomes a failure snapshot for its own account.
func (s *Service) Check(ctx context.Context, targets []*quota.Target) domain.Results {
	start := time.Now()
	log := s.logger.With(zap.String("cycle_id", uuid.NewString()))
	ctx = logpkg.ContextWithLogger(ctx, log)

	snaps := make([]domain.Snapshot, len(targets))

	var g errgroup.Group
	g.SetLimit(max(1, min(len(targets), s.maxConcurrency)))
	for i, t := range targets {
		g.Go(func() error {
			snaps[i] = s.checkOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	results := make(domain.Results, len(snaps))
	failed := 0
	for _, snap := range snaps {
		results[snap.Account.Name] = snap
		if !snap.Healthy() {
			failed++
		}
	}

	metrics.PollDuration.Observe(time.Since(start).Seconds())
	metrics.PollAccountsTotal.WithLabelValues("ok").Add(float64(len(snaps) - failed))
	metrics.PollAccountsTotal.WithLabelValues("failed").Add(float64(failed))

	log.Info("Poll cycle complete",
		zap.Int("accounts", len(results)),
		zap.Int("failed", failed),
		zap.String("status", string(results.Health())),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

func (s *Service) checkOne(ctx context.Context, t *quota.Target) (snap domain.Snapshot) {
	info := t.Handle.Account().Info()
	defer func() {
		if rvr := recover(); rvr != nil {
			logpkg.FromContext(ctx).Error("panic recovered while checking account",
				zap.String("account", info.Name),
				zap.Any("panic", rvr),
				zap.Stack("stacktrace"),
			)
			snap = domain.FailedSnapshot(info, fmt.Errorf("panic: %v: %w", rvr, domain.ErrInternal))
		}
	}()

	// Accounts still queued when the cycle deadline passes are not started.
	if err := ctx.Err(); err != nil {
		return domain.FailedSnapshot(info, fmt.Errorf("check not started: %v: %w", err, domain.ErrTransport))
	}

	snap = s.snapshots.Snapshot(ctx, t)
	snap.Account = info
	return snap
}

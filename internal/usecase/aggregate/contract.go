package aggregate

import (
	"context"

	"github.com/kailas-cloud/ratewatch/internal/domain"
	"github.com/kailas-cloud/ratewatch/internal/usecase/quota"
)

// Snapshotter reads one account's quotas.
type Snapshotter interface {
	Snapshot(ctx context.Context, t *quota.Target) domain.Snapshot
}

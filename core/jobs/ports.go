package jobs

import (
	"context"
	"time"

	"datingapp/modules/db/redis/locking"

	"github.com/gofrs/uuid/v5"
)

type (
	// Counter is the debounce store. Incr sets ttl when it creates key.
	Counter interface {
		Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	}

	LastActiveToucher interface {
		TouchLastActive(ctx context.Context, memberID uuid.UUID, at time.Time) error
	}

	TaskExecutor interface {
		Execute(ctx context.Context, cfg locking.LockConfiguration, task locking.TaskFunc) error
	}

	ImageRemover interface {
		Delete(ctx context.Context, publicID string) error
	}

	PendingDeletion struct {
		PublicID string
		Attempts int
	}

	PurgeOutcome struct {
		PublicID string
		Err      error
	}

	// PurgeQueue hands out queued asset deletions. WithClaim locks up to limit
	// rows with fewer than maxAttempts attempts, passes them to fn and
	// records fn's outcomes before releasing them.
	PurgeQueue interface {
		WithClaim(ctx context.Context, limit, maxAttempts int, fn func(ctx context.Context, claimed []PendingDeletion) []PurgeOutcome) error
	}
)

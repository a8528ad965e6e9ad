package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"datingapp/modules/db/redis/locking"
	"datingapp/modules/telemetry"
	"datingapp/modules/worker"

	"golang.org/x/time/rate"
)

const photoPurgeJob = "photo_purge"

// PhotoPurgeJob removes image files whose photo rows are gone. One replica
// runs it at a time.
type PhotoPurgeJob struct {
	queue    PurgeQueue
	images   ImageRemover
	executor TaskExecutor
	limiter  *rate.Limiter
	cfg      PhotoPurgeConfig

	metrics *telemetry.JobMetrics
	logger  *slog.Logger
}

type PurgeOption func(*PhotoPurgeJob)

func WithPurgeLogger(l *slog.Logger) PurgeOption {
	return func(j *PhotoPurgeJob) {
		if l != nil {
			j.logger = l
		}
	}
}

func WithPurgeMetrics(m *telemetry.JobMetrics) PurgeOption {
	return func(j *PhotoPurgeJob) { j.metrics = m }
}

func NewPhotoPurgeJob(queue PurgeQueue, images ImageRemover, executor TaskExecutor, cfg PhotoPurgeConfig, opts ...PurgeOption) *PhotoPurgeJob {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	j := &PhotoPurgeJob{
		queue:    queue,
		images:   images,
		executor: executor,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j
}

func (j *PhotoPurgeJob) lockConfig() locking.LockConfiguration {
	return locking.LockConfiguration{
		Name:           photoPurgeJob,
		LockAtMostFor:  j.cfg.LockAtMostFor,
		LockAtLeastFor: j.cfg.LockAtLeastFor,
	}
}

// Run ticks every Interval until ctx is cancelled.
func (j *PhotoPurgeJob) Run(ctx context.Context) {
	interval := j.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := j.RunOnce(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
			case errors.Is(err, locking.ErrLockNotAcquired):
				j.logger.DebugContext(ctx, "photo purge skipped, lock held elsewhere")
			default:
				j.logger.ErrorContext(ctx, "photo purge failed", slog.Any("error", err))
			}
		}
	}
}

// RunOnce purges one batch under the job lock.
func (j *PhotoPurgeJob) RunOnce(ctx context.Context) error {
	return j.executor.Execute(ctx, j.lockConfig(), func(ctx context.Context) error {
		return j.queue.WithClaim(ctx, j.cfg.BatchSize, j.cfg.MaxAttempts, j.purge)
	})
}

func (j *PhotoPurgeJob) purge(ctx context.Context, claimed []PendingDeletion) []PurgeOutcome {
	outcomes := make([]PurgeOutcome, len(claimed))
	idx := make([]int, len(claimed))
	for i := range idx {
		idx[i] = i
	}

	worker.Each(ctx, j.cfg.Workers, idx, func(ctx context.Context, i int) {
		if err := j.limiter.Wait(ctx); err != nil {
			return
		}
		id := claimed[i].PublicID
		outcomes[i] = PurgeOutcome{PublicID: id, Err: j.images.Delete(ctx, id)}
		j.metrics.Processed(ctx, photoPurgeJob, outcomes[i].Err == nil)
	})

	// items skipped because ctx ended keep their row untouched
	out := outcomes[:0]
	for _, o := range outcomes {
		if o.PublicID != "" {
			out = append(out, o)
		}
	}

	j.logger.DebugContext(ctx, "photo purge batch done",
		slog.Int("claimed", len(claimed)),
		slog.Int("handled", len(out)),
	)
	return out
}

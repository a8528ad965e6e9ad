package jobs

import (
	"context"
	"log/slog"
	"time"

	"datingapp/modules/clock"
	"datingapp/modules/middleware"
	"datingapp/modules/telemetry"
	"datingapp/modules/worker"

	"github.com/gofrs/uuid/v5"
)

const activityJob = "activity"

var _ middleware.ActivityRecorder = (*ActivityTracker)(nil)

type touch struct {
	memberID uuid.UUID
	at       time.Time
}

// ActivityTracker updates last_active off the request path. A member is
// queued at most once per debounce window; a full queue drops the update.
type ActivityTracker struct {
	counter Counter
	toucher LastActiveToucher
	cfg     ActivityConfig
	queue   chan touch

	clock   clock.Clock
	metrics *telemetry.JobMetrics
	logger  *slog.Logger
}

type ActivityOption func(*ActivityTracker)

func WithActivityLogger(l *slog.Logger) ActivityOption {
	return func(t *ActivityTracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithActivityMetrics(m *telemetry.JobMetrics) ActivityOption {
	return func(t *ActivityTracker) { t.metrics = m }
}

func WithActivityClock(c clock.Clock) ActivityOption {
	return func(t *ActivityTracker) {
		if c != nil {
			t.clock = c
		}
	}
}

func NewActivityTracker(counter Counter, toucher LastActiveToucher, cfg ActivityConfig, opts ...ActivityOption) *ActivityTracker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	t := &ActivityTracker{
		counter: counter,
		toucher: toucher,
		cfg:     cfg,
		queue:   make(chan touch, cfg.QueueSize),
		clock:   clock.RealClockProvider(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Record implements middleware.ActivityRecorder.
func (t *ActivityTracker) Record(ctx context.Context, memberID uuid.UUID) {
	if t.counter != nil && t.cfg.Debounce > 0 {
		n, err := t.counter.Incr(ctx, "activity:"+memberID.String(), t.cfg.Debounce)
		if err != nil {
			t.logger.DebugContext(ctx, "activity debounce unavailable", slog.Any("error", err))
		} else if n > 1 {
			return
		}
	}

	select {
	case t.queue <- touch{memberID: memberID, at: t.clock.Now()}:
	default:
		t.logger.DebugContext(ctx, "activity queue full, dropping update", slog.String("member_id", memberID.String()))
		t.metrics.Dropped(ctx, activityJob)
	}
}

// Run flushes queued updates until ctx is cancelled.
func (t *ActivityTracker) Run(ctx context.Context) {
	worker.BlockingPool(ctx, t.cfg.Workers, t.queue, t.flush)
}

func (t *ActivityTracker) flush(ctx context.Context, job touch) {
	err := t.toucher.TouchLastActive(ctx, job.memberID, job.at)
	if err != nil {
		t.logger.WarnContext(ctx, "touch last active failed",
			slog.String("member_id", job.memberID.String()),
			slog.Any("error", err),
		)
	}
	t.metrics.Processed(ctx, activityJob, err == nil)
}

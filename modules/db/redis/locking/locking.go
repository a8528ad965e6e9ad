// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"datingapp/modules/clock"

	"github.com/redis/rueidis/rueidislock"
)

type TaskFunc func(ctx context.Context) error

// LockConfiguration describes one job lease.
//
// LockAtMostFor bounds the task context. LockAtLeastFor keeps the lease for a
// minimum time after the task starts, so a fast job is not re-run by another
// replica inside the same tick.
type LockConfiguration struct {
	Name           string
	LockAtMostFor  time.Duration
	LockAtLeastFor time.Duration
}

var (
	ErrLockNotAcquired      = errors.New("locking: lock not acquired")
	ErrInvalidConfiguration = errors.New("locking: invalid lock configuration")
)

// Locker is the subset of rueidislock.Locker the executor needs.
type Locker interface {
	WithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error)
	TryWithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error)
}

var _ Locker = (rueidislock.Locker)(nil)

type LockingTaskExecutor struct {
	locker Locker
	logger *slog.Logger
	clock  clock.Clock

	// waitForLock blocks on WithContext instead of a single TryWithContext.
	waitForLock bool
	namePrefix  string
}

type Option func(*LockingTaskExecutor)

func WithLogger(l *slog.Logger) Option {
	return func(e *LockingTaskExecutor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithWaitForLock(wait bool) Option {
	return func(e *LockingTaskExecutor) {
		e.waitForLock = wait
	}
}

func WithNamePrefix(prefix string) Option {
	return func(e *LockingTaskExecutor) {
		e.namePrefix = prefix
	}
}

func WithClock(c clock.Clock) Option {
	return func(e *LockingTaskExecutor) {
		if c != nil {
			e.clock = c
		}
	}
}

func NewLockingTaskExecutor(locker Locker, opts ...Option) *LockingTaskExecutor {
	e := &LockingTaskExecutor{
		locker: locker,
		logger: slog.Default(),
		clock:  clock.RealClockProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs task while holding the lease named by cfg. The lease is
// released when Execute returns, after LockAtLeastFor has elapsed.
func (e *LockingTaskExecutor) Execute(ctx context.Context, cfg LockConfiguration, task TaskFunc) error {
	if task == nil {
		return errors.New("locking: task must not be nil")
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	name := e.namePrefix + cfg.Name
	lockCtx, release, err := e.acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	taskCtx, cancel := context.WithCancel(lockCtx)
	if cfg.LockAtMostFor > 0 {
		cancel()
		taskCtx, cancel = context.WithTimeout(lockCtx, cfg.LockAtMostFor)
	}
	defer cancel()

	started := e.clock.Now()
	err = task(taskCtx)
	e.logger.DebugContext(ctx, "locking: task finished",
		slog.String("lock.name", name),
		slog.Duration("task.duration", e.clock.Now().Sub(started)),
		slog.Any("task.error", err),
	)

	if cfg.LockAtLeastFor > 0 {
		if wait := started.Add(cfg.LockAtLeastFor).Sub(e.clock.Now()); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
			case <-lockCtx.Done():
			}
		}
	}
	return err
}

func (e *LockingTaskExecutor) acquire(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	if !e.waitForLock {
		lockCtx, release, err := e.locker.TryWithContext(ctx, name)
		switch {
		case err == nil:
			return lockCtx, release, nil
		case errors.Is(err, rueidislock.ErrNotLocked):
			e.logger.DebugContext(ctx, "locking: lock held elsewhere", slog.String("lock.name", name))
			return nil, nil, ErrLockNotAcquired
		default:
			return nil, nil, fmt.Errorf("locking: try-acquire %q: %w", name, err)
		}
	}

	// the lease context derives from ctx, so waiting is bounded by the caller
	lockCtx, release, err := e.locker.WithContext(ctx, name)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("locking: acquire %q: %w", name, err)
	}
	return lockCtx, release, nil
}

func validateConfig(cfg LockConfiguration) error {
	switch {
	case cfg.Name == "":
		return fmt.Errorf("%w: lock name must not be empty", ErrInvalidConfiguration)
	case cfg.LockAtMostFor < 0 || cfg.LockAtLeastFor < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfiguration)
	case cfg.LockAtMostFor > 0 && cfg.LockAtLeastFor > cfg.LockAtMostFor:
		return fmt.Errorf("%w: lockAtLeastFor (%s) > lockAtMostFor (%s)",
			ErrInvalidConfiguration, cfg.LockAtLeastFor, cfg.LockAtMostFor)
	}
	return nil
}

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
	"testing"
	"time"

	"github.com/redis/rueidis/rueidislock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	held     map[string]bool
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) lease(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	if f.held[name] {
		return nil, nil, rueidislock.ErrNotLocked
	}
	f.held[name] = true
	lockCtx, cancel := context.WithCancel(ctx)
	return lockCtx, func() {
		cancel()
		delete(f.held, name)
		f.released = append(f.released, name)
	}, nil
}

func (f *fakeLocker) WithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	if f.held[name] {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return f.lease(ctx, name)
}

func (f *fakeLocker) TryWithContext(ctx context.Context, name string) (context.Context, context.CancelFunc, error) {
	return f.lease(ctx, name)
}

func TestExecute_RunsTaskUnderPrefixedLock(t *testing.T) {
	locker := newFakeLocker()
	exec := NewLockingTaskExecutor(locker, WithNamePrefix("jobs:"))

	var sawLock bool
	err := exec.Execute(context.Background(), LockConfiguration{Name: "photo-purge"}, func(ctx context.Context) error {
		sawLock = locker.held["jobs:photo-purge"]
		return nil
	})

	require.NoError(t, err)
	assert.True(t, sawLock)
	assert.Equal(t, []string{"jobs:photo-purge"}, locker.released)
}

func TestExecute_LockHeldElsewhere(t *testing.T) {
	locker := newFakeLocker()
	locker.held["photo-purge"] = true
	exec := NewLockingTaskExecutor(locker)

	called := false
	err := exec.Execute(context.Background(), LockConfiguration{Name: "photo-purge"}, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)
}

func TestExecute_PropagatesTaskError(t *testing.T) {
	exec := NewLockingTaskExecutor(newFakeLocker())
	boom := errors.New("boom")

	err := exec.Execute(context.Background(), LockConfiguration{Name: "x"}, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestExecute_LockAtMostForBoundsTask(t *testing.T) {
	exec := NewLockingTaskExecutor(newFakeLocker())

	err := exec.Execute(context.Background(), LockConfiguration{
		Name:          "slow",
		LockAtMostFor: 10 * time.Millisecond,
	}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_LockAtLeastForHoldsLease(t *testing.T) {
	exec := NewLockingTaskExecutor(newFakeLocker())

	start := time.Now()
	err := exec.Execute(context.Background(), LockConfiguration{
		Name:           "fast",
		LockAtMostFor:  time.Second,
		LockAtLeastFor: 30 * time.Millisecond,
	}, func(context.Context) error { return nil })

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestExecute_InvalidConfiguration(t *testing.T) {
	exec := NewLockingTaskExecutor(newFakeLocker())
	noop := func(context.Context) error { return nil }

	cases := []LockConfiguration{
		{},
		{Name: "neg", LockAtMostFor: -time.Second},
		{Name: "inverted", LockAtMostFor: time.Second, LockAtLeastFor: time.Minute},
	}
	for _, cfg := range cases {
		assert.ErrorIs(t, exec.Execute(context.Background(), cfg, noop), ErrInvalidConfiguration, cfg.Name)
	}
}

func TestExecute_WaitForLockBoundedByCaller(t *testing.T) {
	locker := newFakeLocker()
	locker.held["photo-purge"] = true
	exec := NewLockingTaskExecutor(locker, WithWaitForLock(true))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Execute(ctx, LockConfiguration{Name: "photo-purge"}, func(context.Context) error {
		t.Fatal("task must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

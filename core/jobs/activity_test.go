package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"datingapp/modules/clock"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type memCounter struct {
	mu   sync.Mutex
	n    map[string]int64
	fail error
}

func (c *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return 0, c.fail
	}
	if c.n == nil {
		c.n = map[string]int64{}
	}
	c.n[key]++
	return c.n[key], nil
}

type recordingToucher struct {
	mu      sync.Mutex
	touched []uuid.UUID
	done    chan struct{}
}

func (r *recordingToucher) TouchLastActive(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	r.touched = append(r.touched, id)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

func TestActivityTracker_Debounces(t *testing.T) {
	toucher := &recordingToucher{}
	tr := NewActivityTracker(&memCounter{}, toucher, ActivityConfig{Debounce: time.Minute, QueueSize: 10, Workers: 1},
		WithActivityClock(clock.Fixed(now)))

	lisa, todd := uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())
	ctx := context.Background()
	tr.Record(ctx, lisa)
	tr.Record(ctx, lisa)
	tr.Record(ctx, todd)

	require.Len(t, tr.queue, 2)
	first := <-tr.queue
	assert.Equal(t, lisa, first.memberID)
	assert.Equal(t, now, first.at)
}

func TestActivityTracker_DropsWhenFull(t *testing.T) {
	tr := NewActivityTracker(nil, &recordingToucher{}, ActivityConfig{QueueSize: 1, Workers: 1})

	ctx := context.Background()
	tr.Record(ctx, uuid.Must(uuid.NewV7()))
	tr.Record(ctx, uuid.Must(uuid.NewV7()))
	assert.Len(t, tr.queue, 1)
}

func TestActivityTracker_CounterFailureStillQueues(t *testing.T) {
	tr := NewActivityTracker(&memCounter{fail: errors.New("redis down")}, &recordingToucher{},
		ActivityConfig{Debounce: time.Minute, QueueSize: 4, Workers: 1})

	tr.Record(context.Background(), uuid.Must(uuid.NewV7()))
	assert.Len(t, tr.queue, 1)
}

func TestActivityTracker_RunFlushes(t *testing.T) {
	toucher := &recordingToucher{done: make(chan struct{}, 1)}
	tr := NewActivityTracker(nil, toucher, ActivityConfig{QueueSize: 4, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(stopped)
	}()

	id := uuid.Must(uuid.NewV7())
	tr.Record(context.Background(), id)
	select {
	case <-toucher.done:
	case <-time.After(time.Second):
		t.Fatal("update was not flushed")
	}
	cancel()
	<-stopped

	assert.Equal(t, []uuid.UUID{id}, toucher.touched)
}

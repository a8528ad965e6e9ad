package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"datingapp/core/member/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
	gets int
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) AtomicGet(_ context.Context, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (m *memKV) AtomicSet(_ context.Context, key string, value any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	prev, ok := m.data[key]
	m.data[key] = value.([]byte)
	if !ok {
		return nil, nil
	}
	return prev, nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func testConfig() Config {
	return Config{
		BreakerMaxRequests:  1,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      time.Minute,
		BreakerFailureRatio: 0.5,
		BreakerMinRequests:  2,
	}
}

func TestMemberCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemberCache(newMemKV(), testConfig())

	miss, err := c.Get(ctx, "lisa:public")
	require.NoError(t, err)
	assert.Nil(t, miss)

	m := domain.Member{
		ID:       uuid.Must(uuid.NewV7()),
		Username: "lisa",
		Gender:   domain.Female,
		Photos:   []domain.Photo{{URL: "http://img/1.jpg", IsMain: true}},
		Version:  4,
	}
	require.NoError(t, c.Set(ctx, "lisa:public", m))

	got, err := c.Get(ctx, "lisa:public")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, int64(4), got.Version)
	assert.Len(t, got.Photos, 1)

	require.NoError(t, c.Invalidate(ctx, "lisa:public", "lisa:owner"))
	got, err = c.Get(ctx, "lisa:public")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemberCache_BreakerOpensAndMisses(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.fail = errors.New("connection refused")
	c := NewMemberCache(kv, testConfig())

	for range 2 {
		_, err := c.Get(ctx, "lisa:public")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())

	calls := kv.gets
	got, err := c.Get(ctx, "lisa:public")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, calls, kv.gets, "open breaker must not reach the store")

	// invalidation still goes through
	kv.fail = nil
	kv.data["lisa:owner"] = []byte(`{}`)
	require.NoError(t, c.Invalidate(ctx, "lisa:owner"))
	assert.NotContains(t, kv.data, "lisa:owner")
}

func TestMemberCache_CancelledRequestsDoNotTrip(t *testing.T) {
	kv := newMemKV()
	kv.fail = context.Canceled
	c := NewMemberCache(kv, testConfig())

	for range 5 {
		_, _ = c.Get(context.Background(), "x")
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
}

// Package cache keeps member details in a key-value store behind a circuit
// breaker. While the breaker is open every call is a miss and callers read
// from Postgres.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"datingapp/core/member/domain"
	"datingapp/modules/db"

	"github.com/sony/gobreaker"
)

// Config is read with the CACHE_ prefix.
type Config struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"datingapp:member"`
	TTL       time.Duration `env:"TTL" envDefault:"5m"`

	BreakerMaxRequests  uint32        `env:"BREAKER_MAX_REQUESTS" envDefault:"3"`
	BreakerInterval     time.Duration `env:"BREAKER_INTERVAL" envDefault:"30s"`
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT" envDefault:"15s"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"10"`
}

var _ domain.MemberCache = (*MemberCache)(nil)

type MemberCache struct {
	members db.JSONKV[domain.Member]
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type Option func(*MemberCache)

func WithLogger(l *slog.Logger) Option {
	return func(c *MemberCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewMemberCache wraps kv. kv is expected to apply the TTL and key prefix.
func NewMemberCache(kv db.KV, cfg Config, opts ...Option) *MemberCache {
	c := &MemberCache{
		members: db.NewJSONKV[domain.Member](kv),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "member-cache",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// a cancelled request says nothing about the store's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Get returns nil, nil on a miss or while the breaker rejects calls.
func (c *MemberCache) Get(ctx context.Context, key string) (*domain.Member, error) {
	v, err := c.cb.Execute(func() (any, error) {
		return c.members.Get(ctx, key)
	})
	if err != nil {
		return nil, rejected(err)
	}
	m, _ := v.(*domain.Member)
	return m, nil
}

func (c *MemberCache) Set(ctx context.Context, key string, m domain.Member) error {
	_, err := c.cb.Execute(func() (any, error) {
		return c.members.Set(ctx, key, m)
	})
	return rejected(err)
}

// Invalidate is attempted even while the breaker is open: a stale entry that
// survives an outage would be served once the breaker closes.
func (c *MemberCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.cb.State() != gobreaker.StateOpen {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, c.members.Invalidate(ctx, keys...)
		})
		return rejected(err)
	}
	return c.members.Invalidate(ctx, keys...)
}

func (c *MemberCache) State() gobreaker.State {
	return c.cb.State()
}

func rejected(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil
	}
	return err
}

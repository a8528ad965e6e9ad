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

package redis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"datingapp/modules/db"

	"github.com/redis/rueidis"
)

var (
	_ db.KV = (*RedisKV)(nil)

	// KEYS[1] key, ARGV[1] value, ARGV[2] TTL seconds ("" or 0 keeps the key forever).
	// Returns the previous value or nil.
	//go:embed atomic_set.lua
	atomicSetLua string

	luaAtomicSet = rueidis.NewLuaScript(atomicSetLua)
)

// RedisKV implements db.KV on top of rueidis with key prefixing, a default
// TTL and optional server-assisted client-side caching on reads.
type RedisKV struct {
	client rueidis.Client

	prefix     string
	defaultTTL time.Duration
	clientSide bool
}

type RedisKVOption func(*RedisKV)

// WithKeyPrefix scopes every key, e.g. "datingapp:member" turns "lisa" into "datingapp:member:lisa".
func WithKeyPrefix(prefix string) RedisKVOption {
	return func(k *RedisKV) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		k.prefix = prefix
	}
}

// WithDefaultTTL expires every written key after ttl. ttl <= 0 disables expiry.
func WithDefaultTTL(ttl time.Duration) RedisKVOption {
	return func(k *RedisKV) {
		k.defaultTTL = ttl
	}
}

// WithClientSideCache serves AtomicGet through DoCache. The prefix must also
// be listed in RedisConfig.ClientTrackingPrefixes.
func WithClientSideCache() RedisKVOption {
	return func(k *RedisKV) {
		k.clientSide = true
	}
}

func NewRedisKV(client rueidis.Client, opts ...RedisKVOption) *RedisKV {
	kv := &RedisKV{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(kv)
		}
	}
	return kv
}

func (k *RedisKV) key(raw string) string {
	return k.prefix + raw
}

// AtomicGet returns the raw bytes stored at key, or nil, nil when missing.
func (k *RedisKV) AtomicGet(ctx context.Context, key string) (any, error) {
	full := k.key(key)

	var res rueidis.RedisResult
	if k.clientSide && k.defaultTTL > 0 {
		res = k.client.DoCache(ctx, k.client.B().Get().Key(full).Cache(), k.defaultTTL)
	} else {
		res = k.client.Do(ctx, k.client.B().Get().Key(full).Build())
	}

	bs, err := res.AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis kv: get %q: %w", key, err)
	}
	return bs, nil
}

// AtomicSet writes value and returns what was there before, in one round trip.
func (k *RedisKV) AtomicSet(ctx context.Context, key string, value any) (any, error) {
	serialized, err := encodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("redis kv: encode %q: %w", key, err)
	}

	ttlArg := ""
	if k.defaultTTL > 0 {
		ttlArg = strconv.FormatInt(max(int64(k.defaultTTL/time.Second), 1), 10)
	}

	res := luaAtomicSet.Exec(ctx, k.client, []string{k.key(key)}, []string{serialized, ttlArg})
	bs, err := res.AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis kv: set %q: %w", key, err)
	}
	return bs, nil
}

// Delete removes keys. Missing keys are not an error.
func (k *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	// one DEL per key keeps every command on a single slot in cluster mode
	cmds := make(rueidis.Commands, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, k.client.B().Del().Key(k.key(key)).Build())
	}

	var errs []error
	for i, res := range k.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			errs = append(errs, fmt.Errorf("redis kv: del %q: %w", keys[i], err))
		}
	}
	return errors.Join(errs...)
}

func (k *RedisKV) HealthCheck(ctx context.Context) error {
	return k.client.Do(ctx, k.client.B().Ping().Build()).Error()
}

func encodeValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", errors.New("nil values are not allowed")
	case string:
		return x, nil
	case []byte:
		return rueidis.BinaryString(x), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

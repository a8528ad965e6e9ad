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
	"log/slog"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidishook"
)

var _ rueidishook.Hook = (*LogHook)(nil)

// LogHook logs failed commands at Error and slow ones at Warn. Streams and
// pub/sub pass through untouched.
type LogHook struct {
	logger *slog.Logger
	slow   time.Duration
}

func NewLogHook(logger *slog.Logger, slow time.Duration) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger, slow: slow}
}

func (h *LogHook) observe(ctx context.Context, name string, start time.Time, err error) {
	elapsed := time.Since(start)
	switch {
	case err != nil && !rueidis.IsRedisNil(err):
		h.logger.ErrorContext(ctx, "redis command failed",
			slog.String("cmd", name),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
	case h.slow > 0 && elapsed > h.slow:
		h.logger.WarnContext(ctx, "slow redis command",
			slog.String("cmd", name),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func commandName(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func (h *LogHook) Do(client rueidis.Client, ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	start := time.Now()
	name := commandName(cmd.Commands())
	resp := client.Do(ctx, cmd)
	h.observe(ctx, name, start, resp.Error())
	return resp
}

func (h *LogHook) DoMulti(client rueidis.Client, ctx context.Context, multi ...rueidis.Completed) []rueidis.RedisResult {
	start := time.Now()
	resps := client.DoMulti(ctx, multi...)
	for i, resp := range resps {
		h.observe(ctx, commandName(multi[i].Commands()), start, resp.Error())
	}
	return resps
}

func (h *LogHook) DoCache(client rueidis.Client, ctx context.Context, cmd rueidis.Cacheable, ttl time.Duration) rueidis.RedisResult {
	start := time.Now()
	name := commandName(cmd.Commands())
	resp := client.DoCache(ctx, cmd, ttl)
	h.observe(ctx, name, start, resp.Error())
	return resp
}

func (h *LogHook) DoMultiCache(client rueidis.Client, ctx context.Context, multi ...rueidis.CacheableTTL) []rueidis.RedisResult {
	start := time.Now()
	resps := client.DoMultiCache(ctx, multi...)
	for i, resp := range resps {
		h.observe(ctx, commandName(multi[i].Cmd.Commands()), start, resp.Error())
	}
	return resps
}

func (h *LogHook) Receive(client rueidis.Client, ctx context.Context, subscribe rueidis.Completed, fn func(msg rueidis.PubSubMessage)) error {
	return client.Receive(ctx, subscribe, fn)
}

func (h *LogHook) DoStream(client rueidis.Client, ctx context.Context, cmd rueidis.Completed) rueidis.RedisResultStream {
	return client.DoStream(ctx, cmd)
}

func (h *LogHook) DoMultiStream(client rueidis.Client, ctx context.Context, multi ...rueidis.Completed) rueidis.MultiRedisResultStream {
	return client.DoMultiStream(ctx, multi...)
}

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

package ratelimit

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"datingapp/modules/clock"
)

var _ RateLimiter = (*SlidingWindowRateLimiter)(nil)

// SlidingWindowRateLimiter approximates a sliding window from two fixed
// buckets: the current one and the previous one weighted by how much of it
// still overlaps the window ending now.
type SlidingWindowRateLimiter struct {
	clock     clock.Clock
	counter   CounterStore
	keyPrefix string

	limit  uint64
	window time.Duration
}

func SlidingWindowFactory(c clock.Clock, counter CounterStore, keyPrefix string) LimiterFactory {
	return func(limit int64, window time.Duration) RateLimiter {
		return &SlidingWindowRateLimiter{
			clock:     c,
			counter:   counter,
			keyPrefix: keyPrefix,
			limit:     uint64(max(limit, 0)),
			window:    window,
		}
	}
}

func (s *SlidingWindowRateLimiter) Allow(ctx context.Context, key Key) (Result, error) {
	windowNs := s.window.Nanoseconds()
	nowNs := s.clock.Now().UnixNano()
	idx := nowNs / windowNs

	// buckets live for two windows so the next one can still weigh this one
	cur, err := s.counter.Incr(ctx, s.bucketKey(key, idx), 2*s.window)
	if err != nil {
		return Result{}, err
	}
	prev, err := s.counter.Get(ctx, s.bucketKey(key, idx-1))
	if err != nil {
		return Result{}, err
	}

	elapsed := min(max(nowNs-idx*windowNs, 0), windowNs)
	resetIn := max(s.window-time.Duration(elapsed), 0)

	allowed, used := s.usage(uint64(max(cur, 0)), uint64(max(prev, 0)), uint64(windowNs-elapsed))

	res := Result{
		Allowed:       allowed,
		Limit:         int64(s.limit),
		Window:        s.window,
		WindowResetIn: resetIn,
	}
	if used < s.limit {
		res.Remaining = int64(s.limit - used)
	}
	if !allowed {
		res.RetryAfter = resetIn
	}
	return res, nil
}

// usage compares cur*window + prev*prevWeight against limit*window in 128-bit
// integer arithmetic and returns the used request count rounded up.
func (s *SlidingWindowRateLimiter) usage(cur, prev, prevWeight uint64) (allowed bool, used uint64) {
	w := uint64(s.window.Nanoseconds())

	curHi, curLo := bits.Mul64(cur, w)
	prevHi, prevLo := bits.Mul64(prev, prevWeight)
	lo, carry := bits.Add64(curLo, prevLo, 0)
	hi, _ := bits.Add64(curHi, prevHi, carry)

	limHi, limLo := bits.Mul64(s.limit, w)
	allowed = hi < limHi || (hi == limHi && lo <= limLo)

	used = ^uint64(0)
	switch {
	case hi == 0:
		used = lo / w
		if lo%w != 0 {
			used++
		}
	case hi < w:
		q, r := bits.Div64(hi, lo, w)
		used = q
		if r != 0 && used != ^uint64(0) {
			used++
		}
	}
	return allowed, used
}

func (s *SlidingWindowRateLimiter) bucketKey(key Key, idx int64) string {
	return fmt.Sprintf("%s:%s:%d", s.keyPrefix, key, idx)
}

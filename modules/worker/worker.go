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

package worker

import (
	"context"
	"log/slog"
	"sync"
)

type Worker[Job any] func(context.Context, Job)

// BlockingPool runs size workers over jobs and blocks until jobs is closed and
// drained or ctx is cancelled. The caller must close jobs or cancel ctx.
//
// A panicking job is logged and the worker moves on to the next one.
func BlockingPool[Job any](ctx context.Context, size int, jobs <-chan Job, worker Worker[Job]) {
	if size <= 0 {
		size = 1
	}
	var wg sync.WaitGroup
	for range size {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					run(ctx, worker, job)
				}
			}
		})
	}
	wg.Wait()
}

func run[Job any](ctx context.Context, worker Worker[Job], job Job) {
	defer func() {
		if v := recover(); v != nil {
			slog.ErrorContext(ctx, "worker panic", slog.Any("panic", v))
		}
	}()
	worker(ctx, job)
}

// Each feeds items to a BlockingPool of size workers and waits for all of
// them to finish.
func Each[Job any](ctx context.Context, size int, items []Job, worker Worker[Job]) {
	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		for _, item := range items {
			select {
			case jobs <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	BlockingPool(ctx, size, jobs, worker)
}

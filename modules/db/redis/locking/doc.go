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

// Package locking runs background jobs under a Redis lease so that only one
// replica executes a given job at a time.
//
//	locker, _ := redis.NewLocker(cfg.Redis)
//	exec := locking.NewLockingTaskExecutor(locker, locking.WithNamePrefix("jobs:"))
//	err := exec.Execute(ctx, locking.LockConfiguration{
//		Name:           "photo-purge",
//		LockAtMostFor:  time.Minute,
//		LockAtLeastFor: 10 * time.Second,
//	}, purge.Run)
//	if errors.Is(err, locking.ErrLockNotAcquired) {
//		// another replica owns this tick
//	}
package locking

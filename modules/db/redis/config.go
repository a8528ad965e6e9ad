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

import "time"

// RedisConfig contains configuration for constructing a rueidis.Client.
//
// URL is a standard Redis URI, for example:
//
//   - Single:  redis://:password@localhost:6379/0
//   - TLS:     rediss://:password@my-redis.example.com:6379/0
//   - Cluster: redis://:password@host1:6379/0?addr=host2:6379&addr=host3:6379
type RedisConfig struct {
	URL        string `env:"URL" envDefault:"redis://:redis@localhost:6379/0"`
	ClientName string `env:"CLIENT_NAME" envDefault:"datingapp"`

	// SkipTLSVerify disables certificate verification for rediss:// URLs.
	SkipTLSVerify bool `env:"SKIP_TLS_VERIFY"`
	// RequireTLS rejects plaintext redis:// URLs.
	RequireTLS bool `env:"REQUIRE_TLS"`

	DisableRetry      bool          `env:"DISABLE_RETRY"`
	DisableCache      bool          `env:"DISABLE_CACHE"`
	AlwaysPipelining  bool          `env:"ALWAYS_PIPELINING"`
	ConnWriteTimeout  time.Duration `env:"CONN_WRITE_TIMEOUT"`
	RingScaleEachConn int           `env:"RING_SCALE_EACH_CONN"`
	CacheSizeEachConn int           `env:"CACHE_SIZE_EACH_CONN"`

	EnableOtel bool `env:"ENABLE_OTEL" envDefault:"true"`
	// LogCommands installs a slog hook that logs slow or failed commands.
	LogCommands bool `env:"LOG_COMMANDS"`
	// SlowCommandThreshold is the latency above which a command is logged at Warn.
	SlowCommandThreshold time.Duration `env:"SLOW_COMMAND_THRESHOLD" envDefault:"50ms"`

	// ClientTrackingPrefixes turns on CLIENT TRACKING in BCAST/OPTIN mode for
	// the listed prefixes. Reads still have to opt in with DoCache.
	ClientTrackingPrefixes []string `env:"CLIENT_TRACKING_PREFIXES" envSeparator:","`

	// LockKeyPrefix namespaces distributed job locks.
	LockKeyPrefix string `env:"LOCK_KEY_PREFIX" envDefault:"datingapp:lock"`
	// LockValidity is how long a lock key lives between extensions.
	LockValidity time.Duration `env:"LOCK_VALIDITY" envDefault:"5s"`
}

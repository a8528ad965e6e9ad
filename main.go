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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"datingapp/db/migrations"
	"datingapp/modules/appconfig"
	"datingapp/modules/auth"
	"datingapp/modules/clock"
	"datingapp/modules/db"
	"datingapp/modules/db/postgres"
	"datingapp/modules/db/redis"
	"datingapp/modules/db/redis/counter"
	"datingapp/modules/db/redis/locking"
	"datingapp/modules/fs"
	hmac_sign "datingapp/modules/hmac"
	"datingapp/modules/middleware"
	"datingapp/modules/middleware/ratelimit"
	"datingapp/modules/oapi"
	rl "datingapp/modules/ratelimit"
	"datingapp/modules/server"
	"datingapp/modules/services"
	"datingapp/modules/telemetry"

	account_pg "datingapp/core/account/adapters/persistence/pg"
	account_http "datingapp/core/account/adapters/rest"
	account "datingapp/core/account/domain"

	"datingapp/core/jobs"
	jobs_pg "datingapp/core/jobs/adapters/persistence/pg"

	likes_pg "datingapp/core/likes/adapters/persistence/pg"
	likes_http "datingapp/core/likes/adapters/rest"
	likes "datingapp/core/likes/domain"

	member_cache "datingapp/core/member/adapters/cache"
	member_pg "datingapp/core/member/adapters/persistence/pg"
	member_http "datingapp/core/member/adapters/rest"
	member "datingapp/core/member/domain"

	messages_kv "datingapp/core/messages/adapters/persistence/kv"
	messages_pg "datingapp/core/messages/adapters/persistence/pg"
	messages_http "datingapp/core/messages/adapters/rest"
	messages "datingapp/core/messages/domain"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// cancel the context when these signals occur
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	// manual dependency injections, imo there's no need to over-engineer with DI frameworks like Fx or Wire
	clock := clock.RealClock{}

	// --- application config ----
	appConfig, err := appconfig.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("error", err))
		exitCode = 1
		return
	}

	if strings.EqualFold(appConfig.Env, appconfig.EnvProd) {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appConfig.LogLevel})))
	} else {
		slog.SetLogLoggerLevel(appConfig.LogLevel)
	}

	// --- infrastructure ---

	connectionPool, err := postgres.New(
		ctx,
		&appConfig.Postgres,
		postgres.PostgresOptions{
			Migrations:    migrations.FS,
			MigrationsDir: migrations.Dir,
			WriterOptions: []postgres.PgxConfigOption{
				postgres.WithApplicationName(appConfig.Otel.ServiceName),
			},
			// assuming writer connection does not pass through pgBouncer,
			// so we can apply server-side prepared statements
			ReaderOptions: []postgres.PgxConfigOption{
				postgres.WithPgBouncerSimpleProtocol(),
				postgres.WithApplicationName(appConfig.Otel.ServiceName),
				postgres.WithMaxConnLifetime(appConfig.Postgres.MaxConnLifetime),
			},
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "database error", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := connectionPool.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "database shutdown error", slog.Any("error", err))
		}
	}()

	if err = connectionPool.HealthCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "database health check failed", slog.Any("error", err))
		exitCode = 1
		return
	}

	// "migrate up|down|new <name>" manages the schema and exits
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(connectionPool, os.Args[2:]); err != nil {
			slog.ErrorContext(ctx, "migration command failed", slog.Any("error", err))
			exitCode = 1
		}
		return
	}

	if appConfig.Postgres.AutoMigrate {
		if err := connectionPool.MigrateUp(); err != nil {
			slog.ErrorContext(ctx, "database migration failed", slog.Any("error", err))
			exitCode = 1
			return
		}
	}

	otelShutdown, err := telemetry.Init(ctx, appConfig.Otel)
	if err != nil {
		slog.ErrorContext(ctx, "telemetry not properly configured", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "telemetry shutdown error", slog.Any("error", err))
		}
	}()

	redisClient, err := redis.NewRueidisClient(ctx, appConfig.Redis)
	if err != nil {
		slog.ErrorContext(ctx, "redis not properly setup", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer redisClient.Close()

	locker, err := redis.NewLocker(appConfig.Redis)
	if err != nil {
		slog.ErrorContext(ctx, "redis locker not properly setup", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer locker.Close()

	images, err := fs.NewLocalFS(appConfig.Images)
	if err != nil {
		slog.ErrorContext(ctx, "image store not properly setup", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer images.Close()

	signer, err := hmac_sign.NewHMACSigner([]byte(appConfig.HMAC.Secret))
	if err != nil {
		slog.ErrorContext(ctx, "hmac signer setup error", slog.Any("error", err))
		exitCode = 1
		return
	}

	tokens, err := auth.NewTokenService(appConfig.JWT, clock)
	if err != nil {
		slog.ErrorContext(ctx, "token service setup error", slog.Any("error", err))
		exitCode = 1
		return
	}

	redisCounter := counter.NewRedisCounterStore(redisClient, "")

	memberKVOpts := []redis.RedisKVOption{
		redis.WithKeyPrefix(appConfig.Cache.KeyPrefix),
		redis.WithDefaultTTL(appConfig.Cache.TTL),
	}
	if len(appConfig.Redis.ClientTrackingPrefixes) > 0 {
		memberKVOpts = append(memberKVOpts, redis.WithClientSideCache())
	}
	memberKV := redis.NewRedisKV(redisClient, memberKVOpts...)

	// --- persistence ---
	// readers use runtime replica selection, writers use prepared statements on the primary

	memberReader := member_pg.NewPostgresMemberReader(connectionPool)
	memberWriter, err := member_pg.NewPostgresMemberWriter(ctx, connectionPool)
	if err != nil {
		slog.ErrorContext(ctx, "member writer initialization error", slog.Any("error", err))
		exitCode = 1
		return
	}

	likesReader := likes_pg.NewPostgresLikesReader(connectionPool)
	likesWriter, err := likes_pg.NewPostgresLikesWriter(ctx, connectionPool)
	if err != nil {
		slog.ErrorContext(ctx, "likes writer initialization error", slog.Any("error", err))
		exitCode = 1
		return
	}

	messageReader := messages_pg.NewPostgresMessageReader(connectionPool)
	messageWriter, err := messages_pg.NewPostgresMessageWriter(ctx, connectionPool)
	if err != nil {
		slog.ErrorContext(ctx, "message writer initialization error", slog.Any("error", err))
		exitCode = 1
		return
	}

	accountStore := account_pg.NewPostgresAccountStore(connectionPool)
	graphStore := account_pg.NewPostgresGraphStore(connectionPool)
	purgeQueue := jobs_pg.NewPostgresPurgeQueue(connectionPool)

	// the activity tracker writes through memberApp, which owns the profile cache
	memberOpts := []member.Option{member.WithClock(clock)}
	if appConfig.Cache.Enabled {
		memberOpts = append(memberOpts, member.WithCache(member_cache.NewMemberCache(memberKV, appConfig.Cache)))
	}
	memberApp := member.NewApp(memberReader, memberWriter, images, memberOpts...)

	// --- background jobs ---

	activityMetrics, err := telemetry.NewJobMetrics("activity")
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize activity metrics, continuing without metrics", slog.Any("error", err))
		activityMetrics = nil
	}
	jobsLogger := slog.Default().With(slog.String("component", "jobs"))
	activity := jobs.NewActivityTracker(redisCounter, memberApp, appConfig.Activity,
		jobs.WithActivityLogger(jobsLogger),
		jobs.WithActivityMetrics(activityMetrics),
		jobs.WithActivityClock(clock),
	)

	purgeMetrics, err := telemetry.NewJobMetrics("photo-purge")
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize purge metrics, continuing without metrics", slog.Any("error", err))
		purgeMetrics = nil
	}
	executor := locking.NewLockingTaskExecutor(locker,
		locking.WithClock(clock),
		locking.WithLogger(jobsLogger),
	)
	purge := jobs.NewPhotoPurgeJob(purgeQueue, images, executor, appConfig.Jobs,
		jobs.WithPurgeLogger(jobsLogger),
		jobs.WithPurgeMetrics(purgeMetrics),
	)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	wg.Go(func() { activity.Run(ctx) })
	wg.Go(func() { purge.Run(ctx) })

	// --- application layer ---

	likesApp := likes.NewApp(likesReader, likesWriter, likes.WithClock(clock))
	messagesApp := messages.NewApp(messageReader, messageWriter, signer,
		messages.WithClock(clock),
		messages.WithCursorTTL(appConfig.ThreadCursorTTL),
		messages.WithGroups(messages_kv.NewRedisGroups(redisClient, "datingapp:messages", appConfig.ThreadConnectionTTL)),
	)
	accountApp := account.NewApp(accountStore, graphStore, auth.NewPasswordHasher(appConfig.BcryptCost), tokens,
		account.WithClock(clock),
		account.WithBootstrapAdmins(appConfig.BootstrapAdmins...),
	)

	guard := middleware.Guard{Verifier: tokens, Activity: activity}
	maxPageSize := appConfig.Paging.MaxPageSize

	contract, err := middleware.LoadDocument(ctx, oapi.FS, oapi.DocumentPath)
	if err != nil {
		slog.ErrorContext(ctx, "api contract not loadable", slog.Any("error", err))
		exitCode = 1
		return
	}

	// --- transport ---

	mux := http.NewServeMux()

	// Initialize HTTP metrics for middleware-based instrumentation
	httpMetrics, err := telemetry.NewHTTPMetrics(appConfig.Otel.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize HTTP metrics, continuing without metrics", slog.Any("error", err))
		httpMetrics = nil
	}

	globalMiddlewares := []func(http.Handler) http.Handler{
		middleware.Telemetry(httpMetrics, func(r *http.Request) string {
			_, pattern := mux.Handler(r)
			return pattern
		}),
		middleware.Recovery(nil),
	}

	if appConfig.RateLimit.Enabled {
		keyStrategies := map[ratelimit.KeyStrategyId]ratelimit.KeyFunc{
			ratelimit.RemoteIpKeyStrategy: ratelimit.RemoteIpKeyFunc,
			ratelimit.SubjectKeyStrategy:  ratelimit.SubjectKeyFunc(tokens.SubjectOf),
		}

		slog.Debug("app rate limit config", slog.Any("rate_limit_config", appConfig.RateLimit))

		rtp, err := ratelimit.ParsePolicy(
			rl.SlidingWindowFactory(clock, redisCounter, appConfig.RateLimit.KeyPrefix),
			&appConfig.RateLimit,
			ratelimit.MuxRouteInfo(mux),
			keyStrategies,
		)
		if err != nil {
			slog.ErrorContext(ctx, "ratelimit config not properly parsed", slog.Any("error", err))
			exitCode = 1
			return
		}
		globalMiddlewares = append(globalMiddlewares, ratelimit.NewRateLimitMiddleware(rtp))
	}

	server, err := server.New(
		appConfig.HTTP.Host, appConfig.HTTP.Port,
		server.WithMux(mux),
		server.WithReadTimeout(appConfig.HTTP.ReadTimeout),
		server.WithWriteTimeout(appConfig.HTTP.WriteTimeout),
		server.WithServices(
			services.NewHealthService(map[string]db.HealthManager{
				"postgres": connectionPool,
				"redis":    memberKV,
			}),
			services.NewImageService(images.Handler()),
			member_http.NewMemberAPI(memberApp, guard,
				member_http.WithMaxPageSize(maxPageSize),
				member_http.WithMaxUploadBytes(appConfig.Images.MaxUploadBytes),
			),
			likes_http.NewLikesAPI(likesApp, guard, maxPageSize),
			messages_http.NewMessagesAPI(messagesApp, guard, maxPageSize),
			account_http.NewAccountAPI(accountApp, guard),
			services.NewContractService(contract),
		),
		server.WithGlobalMiddlewares(globalMiddlewares...),
	)
	if err != nil {
		slog.ErrorContext(ctx, "init server error", slog.Any("error", err))
		exitCode = 1
		return
	}

	if err := server.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "running server error", slog.Any("error", err))
		exitCode = 1
		return
	}
}

func runMigrate(m db.MigrationManager, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: migrate up|down|new <name>")
	}
	switch args[0] {
	case "up":
		return m.MigrateUp()
	case "down":
		return m.MigrateDown()
	case "new":
		if len(args) < 2 {
			return errors.New("usage: migrate new <name>")
		}
		return m.GenerateMigration(args[1])
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"datingapp/modules/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
)

var _ db.ConnectionPool = (*PostgresConnectionPool)(nil)

type PostgresConnectionPool struct {
	writer    bob.DB
	writerCfg PoolConfig

	readers []bob.DB
	mu      sync.Mutex

	readTxTimeout time.Duration

	migrations          fs.FS
	migrationsDir       string
	migrationsSourceDir string
}

func New(
	ctx context.Context,
	config *PostgresConfig,
	opts PostgresOptions,
) (*PostgresConnectionPool, error) {
	writer, err := initDBFromConfig(ctx, &config.WriteConfig, opts.WriterOptions...)
	if err != nil {
		return nil, err
	}

	var readers []bob.DB
	for _, r := range config.ReadConfigs {
		reader, err := initDBFromConfig(ctx, &r, opts.ReaderOptions...)
		if err != nil {
			// a replica that cannot be reached at boot is skipped; reads fall back to the primary
			slog.WarnContext(ctx, "skipping unreachable replica",
				slog.String("host", r.Host),
				slog.Any("error", err),
			)
			continue
		}
		readers = append(readers, reader)
	}

	migrationsDir := opts.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "."
	}

	sourceDir := opts.MigrationsSourceDir
	if sourceDir == "" {
		sourceDir = "db/migrations"
	}

	return &PostgresConnectionPool{
		writer:              writer,
		writerCfg:           config.WriteConfig,
		readers:             readers,
		readTxTimeout:       config.ReadTxTimeout,
		migrations:          opts.Migrations,
		migrationsDir:       migrationsDir,
		migrationsSourceDir: sourceDir,
	}, nil
}

func initDBFromConfig(
	ctx context.Context,
	config *PoolConfig,
	opts ...PgxConfigOption,
) (bob.DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.connString())
	if err != nil {
		return bob.DB{}, err
	}

	for _, opt := range opts {
		if opt != nil {
			opt(poolConfig)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return bob.DB{}, err
	}
	return bob.NewDB(stdlib.OpenDBFromPool(pool)), nil
}

// HealthCheck implements db.ConnectionPool.
func (p *PostgresConnectionPool) HealthCheck(ctx context.Context) error {
	_, err := p.writer.ExecContext(ctx, "SELECT 1")
	return err
}

// Reader implements db.ConnectionPool.
//
// Many strategies exist for selecting one reader from the list:
// - Health-aware selection (cool-down & circuit breakers)
// - Power of two choices
// - Read-your-write
//
// Uniform random selection is enough until profiling says otherwise.
func (p *PostgresConnectionPool) Reader() db.Querier {
	return p.pickReader()
}

func (p *PostgresConnectionPool) pickReader() bob.DB {
	if len(p.readers) == 0 {
		return p.writer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.readers[rand.IntN(len(p.readers))]
}

// Writer implements db.ConnectionPool.
func (p *PostgresConnectionPool) Writer() db.Querier {
	return p.writer
}

// WithTimeoutTx implements db.ConnectionPool.
func (p *PostgresConnectionPool) WithTimeoutTx(ctx context.Context, timeout time.Duration, fn db.TxFn) error {
	ctx, stop := context.WithTimeout(ctx, timeout)
	defer stop()

	return p.WithTx(ctx, fn)
}

// WithTx implements db.ConnectionPool.
func (p *PostgresConnectionPool) WithTx(ctx context.Context, fn db.TxFn) error {
	return p.writer.RunInTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	}, func(ctx context.Context, exec bob.Executor) error {
		return fn(ctx, exec)
	})
}

// WithReadTx implements db.ReadTxManager.
func (p *PostgresConnectionPool) WithReadTx(ctx context.Context, fn db.TxFn) error {
	if p.readTxTimeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, p.readTxTimeout)
		defer stop()
	}

	reader := p.pickReader()
	return reader.RunInTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	}, func(ctx context.Context, exec bob.Executor) error {
		return fn(ctx, exec)
	})
}

// Shutdown implements db.ConnectionPool.
func (p *PostgresConnectionPool) Shutdown(_ context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error

	if err := p.writer.Close(); err != nil {
		errs = append(errs, err)
	}

	for _, reader := range p.readers {
		if err := reader.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	// single, flat join
	return errors.Join(errs...)
}

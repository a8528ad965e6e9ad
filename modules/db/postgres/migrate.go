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
	"errors"
	"fmt"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres"
)

var ErrNoMigrations = errors.New("postgres: no migrations configured")

// migrator builds a dbmate instance pointed at the primary.
// Migrations always run against the writer; replicas follow through replication.
func (p *PostgresConnectionPool) migrator() *dbmate.DB {
	m := dbmate.New(p.writerCfg.URL())
	m.MigrationsDir = []string{p.migrationsDir}
	m.AutoDumpSchema = false
	m.Verbose = false
	if p.migrations != nil {
		m.FS = p.migrations
	}
	return m
}

// MigrateUp implements db.MigrationManager.
func (p *PostgresConnectionPool) MigrateUp() error {
	if p.migrations == nil {
		return ErrNoMigrations
	}
	if err := p.migrator().CreateAndMigrate(); err != nil {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}
	return nil
}

// MigrateDown implements db.MigrationManager. It rolls back the latest migration only.
func (p *PostgresConnectionPool) MigrateDown() error {
	if p.migrations == nil {
		return ErrNoMigrations
	}
	if err := p.migrator().Rollback(); err != nil {
		return fmt.Errorf("postgres: migrate down: %w", err)
	}
	return nil
}

// GenerateMigration implements db.MigrationManager.
//
// The file is written to the on-disk source directory, not to the embedded FS.
func (p *PostgresConnectionPool) GenerateMigration(name string) error {
	if name == "" {
		return errors.New("postgres: migration name must not be empty")
	}
	m := dbmate.New(p.writerCfg.URL())
	m.MigrationsDir = []string{p.migrationsSourceDir}
	if err := m.NewMigration(name); err != nil {
		return fmt.Errorf("postgres: generate migration: %w", err)
	}
	return nil
}

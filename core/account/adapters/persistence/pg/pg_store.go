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

package pg

import (
	"context"
	"fmt"

	"datingapp/core/account/domain"
	"datingapp/modules/db"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.AccountStore = (*PostgresAccountStore)(nil)

type accountPool interface {
	db.ConnectionManager
	db.TxManager
}

type PostgresAccountStore struct {
	pool accountPool
}

func NewPostgresAccountStore(pool accountPool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

// CreateAccount inserts the member and its roles in one transaction.
func (s *PostgresAccountStore) CreateAccount(ctx context.Context, acc *domain.NewAccount) (*domain.Account, error) {
	err := s.pool.WithTx(ctx, func(ctx context.Context, q db.Querier) error {
		insert := psql.Insert(
			im.Into(membersTable, "id", "username", "password_hash", "known_as", "gender", "date_of_birth", "city", "country"),
			im.Values(
				psql.Arg(acc.ID), psql.Arg(acc.Username), psql.Arg(acc.PasswordHash), psql.Arg(acc.KnownAs),
				psql.Arg(acc.Gender), psql.Arg(acc.DateOfBirth), psql.Arg(acc.City), psql.Arg(acc.Country),
			),
		)
		if _, err := bob.Exec(ctx, q, insert); err != nil {
			return err
		}

		roles := psql.Insert(im.Into(memberRolesTable, "member_id", "role"))
		for _, role := range acc.Roles {
			roles.Apply(im.Values(psql.Arg(acc.ID), psql.Arg(role)))
		}
		if _, err := bob.Exec(ctx, q, roles); err != nil {
			return fmt.Errorf("insert roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapAccountError(err)
	}
	return &domain.Account{
		ID:           acc.ID,
		Username:     acc.Username,
		PasswordHash: acc.PasswordHash,
		KnownAs:      acc.KnownAs,
		Gender:       acc.Gender,
		Roles:        acc.Roles,
	}, nil
}

// GetAccount reads from the primary so a login right after registering
// never misses on a lagging replica.
func (s *PostgresAccountStore) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	q := psql.Select(
		sm.Columns("id", "username", "password_hash", "known_as", "gender", mainPhotoColumn, rolesColumn),
		sm.From(membersTable),
		sm.Where(psql.Quote("username").EQ(psql.Arg(username))),
	)
	row, err := bob.One(ctx, s.pool.Writer(), q, scan.StructMapper[AccountRow]())
	if err != nil {
		return nil, wrapAccountError(err)
	}
	acc := toAccount(row)
	return &acc, nil
}

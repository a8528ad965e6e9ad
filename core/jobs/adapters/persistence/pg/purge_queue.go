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
	"unicode/utf8"

	"datingapp/core/jobs"
	"datingapp/modules/db"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

const photoDeletionsTable = "photo_deletions"

// maxErrorLength bounds the stored last_error.
const maxErrorLength = 500

var _ jobs.PurgeQueue = (*PostgresPurgeQueue)(nil)

type PendingRow struct {
	PublicID string `db:"public_id"`
	Attempts int    `db:"attempts"`
}

type PostgresPurgeQueue struct {
	txm db.TxManager
}

func NewPostgresPurgeQueue(txm db.TxManager) *PostgresPurgeQueue {
	return &PostgresPurgeQueue{txm: txm}
}

// WithClaim implements jobs.PurgeQueue. Rows stay locked with SKIP LOCKED
// until fn's outcomes are written.
func (q *PostgresPurgeQueue) WithClaim(
	ctx context.Context,
	limit, maxAttempts int,
	fn func(ctx context.Context, claimed []jobs.PendingDeletion) []jobs.PurgeOutcome,
) error {
	if limit <= 0 {
		return nil
	}
	return q.txm.WithTx(ctx, func(ctx context.Context, exec db.Querier) error {
		claim := psql.RawQuery(`
			SELECT public_id, attempts FROM photo_deletions
			WHERE attempts < ?
			ORDER BY enqueued_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		`, maxAttempts, limit)
		rows, err := bob.All(ctx, exec, claim, scan.StructMapper[PendingRow]())
		if err != nil {
			return fmt.Errorf("claim photo deletions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		claimed := make([]jobs.PendingDeletion, len(rows))
		for i, r := range rows {
			claimed[i] = jobs.PendingDeletion{PublicID: r.PublicID, Attempts: r.Attempts}
		}

		for _, o := range fn(ctx, claimed) {
			if err := record(ctx, exec, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func record(ctx context.Context, exec db.Querier, o jobs.PurgeOutcome) error {
	var q bob.Query
	if o.Err == nil {
		q = psql.Delete(
			dm.From(photoDeletionsTable),
			dm.Where(psql.Quote("public_id").EQ(psql.Arg(o.PublicID))),
		)
	} else {
		q = psql.Update(
			um.Table(photoDeletionsTable),
			um.SetCol("attempts").To(psql.Raw("attempts + 1")),
			um.SetCol("last_error").To(psql.Arg(truncateError(o.Err.Error()))),
			um.Where(psql.Quote("public_id").EQ(psql.Arg(o.PublicID))),
		)
	}
	if _, err := bob.Exec(ctx, exec, q); err != nil {
		return fmt.Errorf("record purge outcome for %q: %w", o.PublicID, err)
	}
	return nil
}

// truncateError cuts msg to at most maxErrorLength bytes on a rune boundary.
func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	n := maxErrorLength
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

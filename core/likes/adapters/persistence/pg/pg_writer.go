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

	"datingapp/core/likes/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/scan"
)

var _ domain.LikesWriteStore = (*PostgresLikesWriter)(nil)

type (
	PostgresLikesWriter struct {
		addStmt bob.QueryStmt[addLikeArgs, LikeRow, []LikeRow]
	}

	addLikeArgs struct {
		SourceID uuid.UUID `db:"source_id"`
		LikedID  uuid.UUID `db:"liked_id"`
	}
)

func NewPostgresLikesWriter(ctx context.Context, pool db.ConnectionManager) (*PostgresLikesWriter, error) {
	primary := pool.Writer().(bob.DB)

	addStmt, err := bob.PrepareQuery[addLikeArgs](ctx, primary, psql.Insert(
		im.Into(likesTable, "source_id", "liked_id"),
		im.Values(bob.Named("source_id"), bob.Named("liked_id")),
		im.Returning("source_id", "liked_id", "created_at"),
	), scan.StructMapper[LikeRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare add like: %w", err)
	}
	return &PostgresLikesWriter{addStmt: addStmt}, nil
}

func (w *PostgresLikesWriter) AddLike(ctx context.Context, sourceID, likedID uuid.UUID) (*domain.Like, error) {
	row, err := w.addStmt.One(ctx, addLikeArgs{SourceID: sourceID, LikedID: likedID})
	if err != nil {
		return nil, wrapLikeError(err, domain.ErrMemberNotFound)
	}
	like := toLike(row)
	return &like, nil
}

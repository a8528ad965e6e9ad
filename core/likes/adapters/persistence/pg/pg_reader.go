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
	"log/slog"

	"datingapp/core/likes/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.LikesReadStore = (*PostgresLikesReader)(nil)

type PostgresLikesReader struct {
	pool db.ReaderConnectionManager
}

func NewPostgresLikesReader(pool db.ReaderConnectionManager) *PostgresLikesReader {
	return &PostgresLikesReader{pool: pool}
}

func (r *PostgresLikesReader) GetUserLike(ctx context.Context, sourceID, likedID uuid.UUID) (*domain.Like, error) {
	q := psql.Select(
		sm.Columns("source_id", "liked_id", "created_at"),
		sm.From(likesTable),
		sm.Where(psql.Quote("source_id").EQ(psql.Arg(sourceID))),
		sm.Where(psql.Quote("liked_id").EQ(psql.Arg(likedID))),
	)
	row, err := bob.One(ctx, r.pool.Reader(), q, scan.StructMapper[LikeRow]())
	if err != nil {
		return nil, wrapLikeError(err, domain.ErrLikeNotFound)
	}
	like := toLike(row)
	return &like, nil
}

// likedMembersQuery joins likes to the member on the other side of the
// relationship named by the predicate.
const likedMembersQuery = `
	SELECT m.id, m.username, m.known_as, m.date_of_birth, m.city,
	       COALESCE((SELECT p.url FROM photos p WHERE p.member_id = m.id AND p.is_main AND p.is_approved), '') AS photo_url
	FROM likes l
	JOIN members m ON m.id = l.%s
	WHERE l.%s = ?
	ORDER BY m.username
	LIMIT ? OFFSET ?
`

func (r *PostgresLikesReader) GetUserLikes(ctx context.Context, params domain.LikesParams) ([]domain.LikedMember, int, error) {
	other, self := "liked_id", "source_id"
	if params.Predicate == domain.PredicateLikedBy {
		other, self = "source_id", "liked_id"
	}
	exec := r.pool.Reader()

	list := psql.RawQuery(
		fmt.Sprintf(likedMembersQuery, other, self),
		params.UserID, params.Paging.Limit(), params.Paging.Offset(),
	)
	members, err := bob.Allx[likedMemberTransformer](ctx, exec, list, scan.StructMapper[LikedMemberRow]())
	if err != nil {
		slog.ErrorContext(ctx, "GetUserLikes query error", slog.Any("error", err))
		return nil, 0, wrapLikeError(err, domain.ErrMemberNotFound)
	}

	count := psql.Select(
		sm.Columns("COUNT(*)"),
		sm.From(likesTable),
		sm.Where(psql.Quote(self).EQ(psql.Arg(params.UserID))),
	)
	total, err := bob.One(ctx, exec, count, scan.SingleColumnMapper[int])
	if err != nil {
		slog.ErrorContext(ctx, "GetUserLikes count error", slog.Any("error", err))
		return nil, 0, wrapLikeError(err, domain.ErrMemberNotFound)
	}
	return members, total, nil
}

func (r *PostgresLikesReader) GetUserWithLikes(ctx context.Context, userID uuid.UUID) (*domain.MemberWithLikes, error) {
	exec := r.pool.Reader()

	member := psql.Select(
		sm.Columns("username"),
		sm.From(membersTable),
		sm.Where(psql.Quote("id").EQ(psql.Arg(userID))),
	)
	username, err := bob.One(ctx, exec, member, scan.SingleColumnMapper[string])
	if err != nil {
		return nil, wrapLikeError(err, domain.ErrMemberNotFound)
	}

	liked := psql.Select(
		sm.Columns("liked_id"),
		sm.From(likesTable),
		sm.Where(psql.Quote("source_id").EQ(psql.Arg(userID))),
	)
	ids, err := bob.All(ctx, exec, liked, scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return nil, wrapLikeError(err, domain.ErrMemberNotFound)
	}
	return &domain.MemberWithLikes{ID: userID, Username: username, LikedIDs: ids}, nil
}

func (r *PostgresLikesReader) GetMemberID(ctx context.Context, username string) (uuid.UUID, error) {
	q := psql.Select(
		sm.Columns("id"),
		sm.From(membersTable),
		sm.Where(psql.Quote("username").EQ(psql.Arg(username))),
	)
	id, err := bob.One(ctx, r.pool.Reader(), q, scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return uuid.Nil, wrapLikeError(err, domain.ErrMemberNotFound)
	}
	return id, nil
}

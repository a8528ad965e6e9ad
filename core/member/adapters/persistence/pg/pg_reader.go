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
	"log/slog"

	"datingapp/core/member/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.MemberReadStore = (*PostgresMemberReader)(nil)

// PostgresMemberReader picks a replica per call and keeps it for every query
// of that call. The owner's own profile is read from the primary so it
// reflects their latest writes.
type PostgresMemberReader struct {
	pool db.ConnectionManager
}

func NewPostgresMemberReader(pool db.ConnectionManager) *PostgresMemberReader {
	return &PostgresMemberReader{pool: pool}
}

func browseFilter(q domain.MemberQuery) []bob.Mod[*dialect.SelectQuery] {
	return []bob.Mod[*dialect.SelectQuery]{
		sm.From(membersTable),
		sm.Where(psql.Quote("username").NE(psql.Arg(q.ExcludeUsername))),
		sm.Where(psql.Quote("gender").EQ(psql.Arg(string(q.Gender)))),
		sm.Where(psql.Quote("date_of_birth").GT(psql.Arg(q.DobAfter))),
		sm.Where(psql.Quote("date_of_birth").LTE(psql.Arg(q.DobOnOrBefore))),
	}
}

func browseQuery(q domain.MemberQuery) bob.Query {
	orderCol := "last_active"
	if q.OrderBy == domain.OrderByCreated {
		orderCol = "created_at"
	}
	return psql.Select(append(browseFilter(q),
		sm.Columns(publicMemberColumns...),
		sm.OrderBy(orderCol).Desc(),
		sm.OrderBy("id").Desc(),
		sm.Limit(q.Paging.Limit()),
		sm.Offset(q.Paging.Offset()),
	)...)
}

func (r *PostgresMemberReader) GetMembers(ctx context.Context, q domain.MemberQuery) ([]domain.Member, int, error) {
	exec := r.pool.Reader()

	members, err := bob.Allx[memberTransformer](ctx, exec, browseQuery(q), scan.StructMapper[MemberRow]())
	if err != nil {
		slog.ErrorContext(ctx, "GetMembers query error", slog.Any("error", err))
		return nil, 0, wrapMemberError(err)
	}

	count := psql.Select(append(browseFilter(q), sm.Columns("COUNT(*)"))...)
	total, err := bob.One(ctx, exec, count, scan.SingleColumnMapper[int])
	if err != nil {
		slog.ErrorContext(ctx, "GetMembers count error", slog.Any("error", err))
		return nil, 0, wrapMemberError(err)
	}
	return members, total, nil
}

func (r *PostgresMemberReader) GetMemberByUsername(ctx context.Context, username string, withUnapproved bool) (*domain.Member, error) {
	exec := r.pool.Reader()
	if withUnapproved {
		exec = r.pool.Writer()
	}

	row, err := bob.One(ctx, exec, memberByUsernameQuery(username, withUnapproved), scan.StructMapper[MemberRow]())
	if err != nil {
		return nil, wrapMemberError(err)
	}
	m := toMember(row)

	photos := memberPhotosQuery(m.ID, withUnapproved)
	m.Photos, err = bob.Allx[photoTransformer](ctx, exec, photos, scan.StructMapper[PhotoRow]())
	if err != nil {
		return nil, wrapPhotoError(err)
	}
	return &m, nil
}

func memberByUsernameQuery(username string, withUnapproved bool) bob.Query {
	cols := publicMemberColumns
	if withUnapproved {
		cols = memberColumns
	}
	return psql.Select(
		sm.Columns(cols...),
		sm.From(membersTable),
		sm.Where(psql.Quote("username").EQ(psql.Arg(username))),
	)
}

func memberPhotosQuery(memberID uuid.UUID, withUnapproved bool) bob.Query {
	photos := psql.Select(
		sm.Columns(photoColumns...),
		sm.From(photosTable),
		sm.Where(psql.Quote("member_id").EQ(psql.Arg(memberID))),
		sm.OrderBy("created_at").Asc(),
	)
	if !withUnapproved {
		photos.Apply(sm.Where(psql.Quote("is_approved").EQ(psql.Arg(true))))
	}
	return photos
}

func (r *PostgresMemberReader) GetMemberGender(ctx context.Context, username string) (domain.Gender, error) {
	query := psql.Select(
		sm.Columns("gender"),
		sm.From(membersTable),
		sm.Where(psql.Quote("username").EQ(psql.Arg(username))),
	)
	g, err := bob.One(ctx, r.pool.Reader(), query, scan.SingleColumnMapper[string])
	if err != nil {
		return "", wrapMemberError(err)
	}
	return domain.Gender(g), nil
}

func (r *PostgresMemberReader) GetPhotoByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	return getPhoto(ctx, r.pool.Reader(), id, false)
}

func (r *PostgresMemberReader) GetUnapprovedPhotos(ctx context.Context) ([]domain.PhotoForApproval, error) {
	q := psql.RawQuery(`
		SELECT p.id, p.url, p.is_approved, m.username
		FROM photos p
		JOIN members m ON m.id = p.member_id
		WHERE NOT p.is_approved
		ORDER BY p.created_at, p.id
	`)
	rows, err := bob.All(ctx, r.pool.Reader(), q, scan.StructMapper[PhotoForApprovalRow]())
	if err != nil {
		slog.ErrorContext(ctx, "GetUnapprovedPhotos query error", slog.Any("error", err))
		return nil, wrapPhotoError(err)
	}
	out := make([]domain.PhotoForApproval, len(rows))
	for i, row := range rows {
		out[i] = domain.PhotoForApproval{ID: row.ID, URL: row.URL, IsApproved: row.IsApproved, Username: row.Username}
	}
	return out, nil
}

func getPhoto(ctx context.Context, exec bob.Executor, id uuid.UUID, forUpdate bool) (*domain.Photo, error) {
	query := psql.Select(
		sm.Columns(photoColumns...),
		sm.From(photosTable),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	if forUpdate {
		query.Apply(sm.ForUpdate())
	}
	row, err := bob.One(ctx, exec, query, scan.StructMapper[PhotoRow]())
	if err != nil {
		return nil, wrapPhotoError(err)
	}
	p := toPhoto(row)
	return &p, nil
}

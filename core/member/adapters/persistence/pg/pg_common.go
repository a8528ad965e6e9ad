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
	"database/sql"
	"errors"
	"strings"
	"time"

	"datingapp/core/member/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
)

const (
	membersTable        = "members"
	photosTable         = "photos"
	photoDeletionsTable = "photo_deletions"
)

type (
	MemberRow struct {
		ID           uuid.UUID `db:"id"`
		Username     string    `db:"username"`
		KnownAs      string    `db:"known_as"`
		Gender       string    `db:"gender"`
		DateOfBirth  time.Time `db:"date_of_birth"`
		Introduction string    `db:"introduction"`
		LookingFor   string    `db:"looking_for"`
		Interests    string    `db:"interests"`
		City         string    `db:"city"`
		Country      string    `db:"country"`
		Created      time.Time `db:"created_at"`
		LastActive   time.Time `db:"last_active"`
		Version      int64     `db:"version_number"`
		PhotoURL     string    `db:"photo_url"`
		Roles        string    `db:"roles"`
	}

	PhotoRow struct {
		ID         uuid.UUID      `db:"id"`
		MemberID   uuid.UUID      `db:"member_id"`
		URL        string         `db:"url"`
		PublicID   sql.NullString `db:"public_id"`
		IsMain     bool           `db:"is_main"`
		IsApproved bool           `db:"is_approved"`
		Created    time.Time      `db:"created_at"`
	}

	PhotoForApprovalRow struct {
		ID         uuid.UUID `db:"id"`
		URL        string    `db:"url"`
		IsApproved bool      `db:"is_approved"`
		Username   string    `db:"username"`
	}
)

// memberColumns matches MemberRow for the owner's view. The main photo and
// roles are correlated subqueries so the list works in SELECT and RETURNING
// alike.
var memberColumns = memberColumnList(false)

// publicMemberColumns only shows an approved main photo.
var publicMemberColumns = memberColumnList(true)

func memberColumnList(approvedOnly bool) []any {
	photo := "COALESCE((SELECT p.url FROM photos p WHERE p.member_id = members.id AND p.is_main), '') AS photo_url"
	if approvedOnly {
		photo = "COALESCE((SELECT p.url FROM photos p WHERE p.member_id = members.id AND p.is_main AND p.is_approved), '') AS photo_url"
	}
	return []any{
		"id", "username", "known_as", "gender", "date_of_birth",
		"introduction", "looking_for", "interests", "city", "country",
		"created_at", "last_active", "version_number",
		psql.Raw(photo),
		psql.Raw("COALESCE((SELECT string_agg(r.role, ',' ORDER BY r.role) FROM member_roles r WHERE r.member_id = members.id), '') AS roles"),
	}
}

var photoColumns = []any{"id", "member_id", "url", "public_id", "is_main", "is_approved", "created_at"}

func toMember(row MemberRow) domain.Member {
	var roles []string
	if row.Roles != "" {
		roles = strings.Split(row.Roles, ",")
	}
	return domain.Member{
		ID:           row.ID,
		Username:     row.Username,
		KnownAs:      row.KnownAs,
		Gender:       domain.Gender(row.Gender),
		DateOfBirth:  row.DateOfBirth,
		Created:      row.Created,
		LastActive:   row.LastActive,
		Introduction: row.Introduction,
		LookingFor:   row.LookingFor,
		Interests:    row.Interests,
		City:         row.City,
		Country:      row.Country,
		PhotoURL:     row.PhotoURL,
		Roles:        roles,
		Version:      row.Version,
	}
}

func toPhoto(row PhotoRow) domain.Photo {
	return domain.Photo{
		ID:         row.ID,
		MemberID:   row.MemberID,
		URL:        row.URL,
		PublicID:   row.PublicID.String,
		IsMain:     row.IsMain,
		IsApproved: row.IsApproved,
		Created:    row.Created,
	}
}

type memberTransformer struct{}

func (memberTransformer) TransformScanned(rows []MemberRow) ([]domain.Member, error) {
	out := make([]domain.Member, len(rows))
	for i, r := range rows {
		out[i] = toMember(r)
	}
	return out, nil
}

type photoTransformer struct{}

func (photoTransformer) TransformScanned(rows []PhotoRow) ([]domain.Photo, error) {
	out := make([]domain.Photo, len(rows))
	for i, r := range rows {
		out[i] = toPhoto(r)
	}
	return out, nil
}

// wrapMemberError maps driver errors to member errors.
func wrapMemberError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMemberNotFound
	}
	return wrapPgError(err)
}

// wrapPhotoError is wrapMemberError for photo lookups.
func wrapPhotoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPhotoNotFound
	}
	return wrapPgError(err)
}

func wrapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation: a second main photo
			return domain.ErrAlreadyMain
		case "23503": // foreign_key_violation
			return domain.ErrMemberNotFound
		case "40001": // serialization_failure
			return domain.ErrPrecondition
		}
	}
	return err
}

// inTxQueryStmt rebinds a prepared statement to tx.
func inTxQueryStmt[Arg any, T any, Ts ~[]T](
	ctx context.Context,
	stmt bob.QueryStmt[Arg, T, Ts],
	tx bob.Tx,
) bob.QueryStmt[Arg, T, Ts] {
	txStmt := stmt
	txStmt.Stmt = bob.InTx(ctx, stmt.Stmt, tx)
	return txStmt
}

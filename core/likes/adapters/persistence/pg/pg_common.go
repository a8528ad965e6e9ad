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
	"database/sql"
	"errors"
	"time"

	"datingapp/core/likes/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	likesTable   = "likes"
	membersTable = "members"
)

type (
	LikeRow struct {
		SourceID uuid.UUID `db:"source_id"`
		LikedID  uuid.UUID `db:"liked_id"`
		Created  time.Time `db:"created_at"`
	}

	LikedMemberRow struct {
		ID          uuid.UUID `db:"id"`
		Username    string    `db:"username"`
		KnownAs     string    `db:"known_as"`
		DateOfBirth time.Time `db:"date_of_birth"`
		City        string    `db:"city"`
		PhotoURL    string    `db:"photo_url"`
	}
)

func toLike(r LikeRow) domain.Like {
	return domain.Like{SourceID: r.SourceID, LikedID: r.LikedID, Created: r.Created}
}

func toLikedMember(r LikedMemberRow) domain.LikedMember {
	return domain.LikedMember{
		ID:          r.ID,
		Username:    r.Username,
		KnownAs:     r.KnownAs,
		DateOfBirth: r.DateOfBirth,
		City:        r.City,
		PhotoURL:    r.PhotoURL,
	}
}

type likedMemberTransformer struct{}

func (likedMemberTransformer) TransformScanned(rows []LikedMemberRow) ([]domain.LikedMember, error) {
	out := make([]domain.LikedMember, len(rows))
	for i, r := range rows {
		out[i] = toLikedMember(r)
	}
	return out, nil
}

// wrapLikeError maps driver errors to like errors. notFound is what a missing
// row means for the query at hand.
func wrapLikeError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation on (source_id, liked_id)
			return domain.ErrAlreadyLiked
		case "23503": // foreign_key_violation
			return domain.ErrMemberNotFound
		case "23514": // check_violation: likes_not_self
			return domain.ErrSelfLike
		}
	}
	return err
}

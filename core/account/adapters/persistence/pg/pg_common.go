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
	"strings"
	"time"

	"datingapp/core/account/domain"
	likes "datingapp/core/likes/domain"
	member "datingapp/core/member/domain"
	messages "datingapp/core/messages/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stephenafamo/bob/dialect/psql"
)

const (
	membersTable     = "members"
	memberRolesTable = "member_roles"
	photosTable      = "photos"
)

var (
	mainPhotoColumn = psql.Raw("COALESCE((SELECT p.url FROM photos p WHERE p.member_id = members.id AND p.is_main), '') AS photo_url")
	rolesColumn     = psql.Raw("COALESCE((SELECT string_agg(r.role, ',' ORDER BY r.role) FROM member_roles r WHERE r.member_id = members.id), '') AS roles")
)

type (
	AccountRow struct {
		ID           uuid.UUID `db:"id"`
		Username     string    `db:"username"`
		PasswordHash []byte    `db:"password_hash"`
		KnownAs      string    `db:"known_as"`
		Gender       string    `db:"gender"`
		PhotoURL     string    `db:"photo_url"`
		Roles        string    `db:"roles"`
	}

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

	LikedMemberRow struct {
		ID          uuid.UUID `db:"id"`
		Username    string    `db:"username"`
		KnownAs     string    `db:"known_as"`
		DateOfBirth time.Time `db:"date_of_birth"`
		City        string    `db:"city"`
		PhotoURL    string    `db:"photo_url"`
	}

	MessageRow struct {
		ID                uuid.UUID    `db:"id"`
		SenderID          uuid.UUID    `db:"sender_id"`
		SenderUsername    string       `db:"sender_username"`
		RecipientID       uuid.UUID    `db:"recipient_id"`
		RecipientUsername string       `db:"recipient_username"`
		Content           string       `db:"content"`
		DateRead          sql.NullTime `db:"date_read"`
		MessageSent       time.Time    `db:"message_sent"`
		SenderDeleted     bool         `db:"sender_deleted"`
		RecipientDeleted  bool         `db:"recipient_deleted"`
	}
)

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func toAccount(r AccountRow) domain.Account {
	return domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		KnownAs:      r.KnownAs,
		Gender:       r.Gender,
		PhotoURL:     r.PhotoURL,
		Roles:        splitRoles(r.Roles),
	}
}

func toMember(r MemberRow) member.Member {
	return member.Member{
		ID:           r.ID,
		Username:     r.Username,
		KnownAs:      r.KnownAs,
		Gender:       member.Gender(r.Gender),
		DateOfBirth:  r.DateOfBirth,
		Introduction: r.Introduction,
		LookingFor:   r.LookingFor,
		Interests:    r.Interests,
		City:         r.City,
		Country:      r.Country,
		Created:      r.Created,
		LastActive:   r.LastActive,
		Version:      r.Version,
		PhotoURL:     r.PhotoURL,
		Roles:        splitRoles(r.Roles),
	}
}

func toPhoto(r PhotoRow) member.Photo {
	return member.Photo{
		ID:         r.ID,
		MemberID:   r.MemberID,
		URL:        r.URL,
		PublicID:   r.PublicID.String,
		IsMain:     r.IsMain,
		IsApproved: r.IsApproved,
		Created:    r.Created,
	}
}

func toLikedMember(r LikedMemberRow) likes.LikedMember {
	return likes.LikedMember{
		ID:          r.ID,
		Username:    r.Username,
		KnownAs:     r.KnownAs,
		DateOfBirth: r.DateOfBirth,
		City:        r.City,
		PhotoURL:    r.PhotoURL,
	}
}

func toMessage(r MessageRow) messages.Message {
	msg := messages.Message{
		ID:                r.ID,
		SenderID:          r.SenderID,
		SenderUsername:    r.SenderUsername,
		RecipientID:       r.RecipientID,
		RecipientUsername: r.RecipientUsername,
		Content:           r.Content,
		MessageSent:       r.MessageSent,
		SenderDeleted:     r.SenderDeleted,
		RecipientDeleted:  r.RecipientDeleted,
	}
	if r.DateRead.Valid {
		t := r.DateRead.Time
		msg.DateRead = &t
	}
	return msg
}

func mapRows[R, T any](rows []R, fn func(R) T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}

func wrapAccountError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMemberNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation: members_username_key
			return domain.ErrUsernameTaken
		case "23503": // foreign_key_violation
			return domain.ErrMemberNotFound
		case "23514": // check_violation: gender or lowercase username
			return domain.ErrInvalidData
		}
	}
	return err
}

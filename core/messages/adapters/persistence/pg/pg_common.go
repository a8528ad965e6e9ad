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

	"datingapp/core/messages/domain"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	messagesTable = "messages"
	membersTable  = "members"
)

// messageColumns selects a message with both members' main photo.
const messageColumns = `
	m.id, m.sender_id, m.sender_username, m.recipient_id, m.recipient_username,
	m.content, m.date_read, m.message_sent, m.sender_deleted, m.recipient_deleted,
	COALESCE((SELECT p.url FROM photos p WHERE p.member_id = m.sender_id AND p.is_main AND p.is_approved), '') AS sender_photo_url,
	COALESCE((SELECT p.url FROM photos p WHERE p.member_id = m.recipient_id AND p.is_main AND p.is_approved), '') AS recipient_photo_url
`

type (
	MessageRow struct {
		ID                uuid.UUID    `db:"id"`
		SenderID          uuid.UUID    `db:"sender_id"`
		SenderUsername    string       `db:"sender_username"`
		SenderPhotoURL    string       `db:"sender_photo_url"`
		RecipientID       uuid.UUID    `db:"recipient_id"`
		RecipientUsername string       `db:"recipient_username"`
		RecipientPhotoURL string       `db:"recipient_photo_url"`
		Content           string       `db:"content"`
		DateRead          sql.NullTime `db:"date_read"`
		MessageSent       time.Time    `db:"message_sent"`
		SenderDeleted     bool         `db:"sender_deleted"`
		RecipientDeleted  bool         `db:"recipient_deleted"`
	}

	ParticipantRow struct {
		ID       uuid.UUID `db:"id"`
		Username string    `db:"username"`
	}
)

func toMessage(r MessageRow) domain.Message {
	msg := domain.Message{
		ID:                r.ID,
		SenderID:          r.SenderID,
		SenderUsername:    r.SenderUsername,
		SenderPhotoURL:    r.SenderPhotoURL,
		RecipientID:       r.RecipientID,
		RecipientUsername: r.RecipientUsername,
		RecipientPhotoURL: r.RecipientPhotoURL,
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

type messageTransformer struct{}

func (messageTransformer) TransformScanned(rows []MessageRow) ([]domain.Message, error) {
	out := make([]domain.Message, len(rows))
	for i, r := range rows {
		out[i] = toMessage(r)
	}
	return out, nil
}

func wrapMessageError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation on sender or recipient
			return domain.ErrMemberNotFound
		case "23514": // check_violation: messages_not_self
			return domain.ErrSelfMessage
		}
	}
	return err
}

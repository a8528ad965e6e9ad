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
	"fmt"
	"strings"
	"time"

	"datingapp/core/messages/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

var _ domain.MessageWriteStore = (*PostgresMessageWriter)(nil)

type (
	PostgresMessageWriter struct {
		txm db.TxManager

		createStmt bob.QueryStmt[createMessageArgs, MessageRow, []MessageRow]
	}

	createMessageArgs struct {
		ID                uuid.UUID    `db:"id"`
		SenderID          uuid.UUID    `db:"sender_id"`
		SenderUsername    string       `db:"sender_username"`
		RecipientID       uuid.UUID    `db:"recipient_id"`
		RecipientUsername string       `db:"recipient_username"`
		Content           string       `db:"content"`
		DateRead          sql.NullTime `db:"date_read"`
	}
)

type messageWriterPool interface {
	db.ConnectionManager
	db.TxManager
}

func NewPostgresMessageWriter(ctx context.Context, pool messageWriterPool) (*PostgresMessageWriter, error) {
	primary := pool.Writer().(bob.DB)

	createStmt, err := bob.PrepareQuery[createMessageArgs](ctx, primary, psql.RawQuery(`
		WITH m AS (
			INSERT INTO messages (id, sender_id, sender_username, recipient_id, recipient_username, content, date_read)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING *
		)
		SELECT `+messageColumns+` FROM m
	`,
		bob.Named("id"), bob.Named("sender_id"), bob.Named("sender_username"),
		bob.Named("recipient_id"), bob.Named("recipient_username"), bob.Named("content"),
		bob.Named("date_read"),
	), scan.StructMapper[MessageRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare create message: %w", err)
	}
	return &PostgresMessageWriter{txm: pool, createStmt: createStmt}, nil
}

func (w *PostgresMessageWriter) CreateMessage(ctx context.Context, msg *domain.NewMessage) (*domain.Message, error) {
	args := createMessageArgs{
		ID:                msg.ID,
		SenderID:          msg.Sender.ID,
		SenderUsername:    msg.Sender.Username,
		RecipientID:       msg.Recipient.ID,
		RecipientUsername: msg.Recipient.Username,
		Content:           msg.Content,
	}
	if msg.DateRead != nil {
		args.DateRead = sql.NullTime{Time: *msg.DateRead, Valid: true}
	}
	row, err := w.createStmt.One(ctx, args)
	if err != nil {
		return nil, wrapMessageError(err, domain.ErrMemberNotFound)
	}
	out := toMessage(row)
	return &out, nil
}

func (w *PostgresMessageWriter) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.MessageWriteTx) error) error {
	return w.txm.WithTx(ctx, func(ctx context.Context, q db.Querier) error {
		return fn(ctx, &messageWriterTx{exec: q})
	})
}

type messageWriterTx struct {
	exec db.Querier
}

var _ domain.MessageWriteTx = (*messageWriterTx)(nil)

func (t *messageWriterTx) GetMessageForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	q := psql.RawQuery(`
		SELECT m.id, m.sender_id, m.sender_username, m.recipient_id, m.recipient_username,
		       m.content, m.date_read, m.message_sent, m.sender_deleted, m.recipient_deleted,
		       '' AS sender_photo_url, '' AS recipient_photo_url
		FROM messages m WHERE m.id = ? FOR UPDATE
	`, id)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[MessageRow]())
	if err != nil {
		return nil, wrapMessageError(err, domain.ErrMessageNotFound)
	}
	msg := toMessage(row)
	return &msg, nil
}

func (t *messageWriterTx) UpdateDeletionFlags(ctx context.Context, id uuid.UUID, senderDeleted, recipientDeleted bool) error {
	q := psql.Update(
		um.Table(messagesTable),
		um.SetCol("sender_deleted").To(psql.Arg(senderDeleted)),
		um.SetCol("recipient_deleted").To(psql.Arg(recipientDeleted)),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	n, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return wrapMessageError(err, domain.ErrMessageNotFound)
	}
	if n == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (t *messageWriterTx) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	q := psql.Delete(
		dm.From(messagesTable),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	n, err := bob.Exec(ctx, t.exec, q)
	if err != nil {
		return wrapMessageError(err, domain.ErrMessageNotFound)
	}
	if n == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// GetThread takes the newest page below the pivot and returns it oldest first.
func (t *messageWriterTx) GetThread(ctx context.Context, q domain.ThreadQuery) ([]domain.Message, error) {
	var sb strings.Builder
	args := []any{q.CurrentUsername, q.RecipientUsername, q.RecipientUsername, q.CurrentUsername}

	sb.WriteString(`SELECT * FROM (SELECT `)
	sb.WriteString(messageColumns)
	sb.WriteString(` FROM messages m WHERE (
		(m.recipient_username = ? AND m.sender_username = ? AND NOT m.recipient_deleted) OR
		(m.recipient_username = ? AND m.sender_username = ? AND NOT m.sender_deleted))`)
	if q.Before != nil {
		sb.WriteString(` AND (m.message_sent, m.id) < (?, ?)`)
		args = append(args, q.Before.MessageSent, q.Before.ID)
	}
	sb.WriteString(` ORDER BY m.message_sent DESC, m.id DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}
	sb.WriteString(`) page ORDER BY page.message_sent, page.id`)

	msgs, err := bob.Allx[messageTransformer](ctx, t.exec, psql.RawQuery(sb.String(), args...), scan.StructMapper[MessageRow]())
	if err != nil {
		return nil, wrapMessageError(err, domain.ErrMessageNotFound)
	}
	return msgs, nil
}

func (t *messageWriterTx) MarkRead(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	q := psql.RawQuery(`UPDATE messages SET date_read = ? WHERE id = ANY(?::uuid[]) AND date_read IS NULL`, at, strs)
	_, err := bob.Exec(ctx, t.exec, q)
	return wrapMessageError(err, domain.ErrMessageNotFound)
}

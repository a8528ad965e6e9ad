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

	"datingapp/core/messages/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.MessageReadStore = (*PostgresMessageReader)(nil)

type PostgresMessageReader struct {
	pool db.ReaderConnectionManager
}

func NewPostgresMessageReader(pool db.ReaderConnectionManager) *PostgresMessageReader {
	return &PostgresMessageReader{pool: pool}
}

func (r *PostgresMessageReader) GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	q := psql.RawQuery(`SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id)
	row, err := bob.One(ctx, r.pool.Reader(), q, scan.StructMapper[MessageRow]())
	if err != nil {
		return nil, wrapMessageError(err, domain.ErrMessageNotFound)
	}
	msg := toMessage(row)
	return &msg, nil
}

// containerFilter is the WHERE clause of each container, bound to the username.
var containerFilter = map[domain.Container]string{
	domain.ContainerInbox:  `m.recipient_username = ? AND NOT m.recipient_deleted`,
	domain.ContainerOutbox: `m.sender_username = ? AND NOT m.sender_deleted`,
	domain.ContainerUnread: `m.recipient_username = ? AND NOT m.recipient_deleted AND m.date_read IS NULL`,
}

func (r *PostgresMessageReader) GetMessagesForUser(ctx context.Context, params domain.MessageParams) ([]domain.Message, int, error) {
	filter, ok := containerFilter[params.Container]
	if !ok {
		return nil, 0, domain.ErrBadContainer
	}
	exec := r.pool.Reader()

	list := psql.RawQuery(
		`SELECT `+messageColumns+` FROM messages m WHERE `+filter+` ORDER BY m.message_sent DESC, m.id DESC LIMIT ? OFFSET ?`,
		params.Username, params.Paging.Limit(), params.Paging.Offset(),
	)
	msgs, err := bob.Allx[messageTransformer](ctx, exec, list, scan.StructMapper[MessageRow]())
	if err != nil {
		slog.ErrorContext(ctx, "GetMessagesForUser query error", slog.Any("error", err))
		return nil, 0, wrapMessageError(err, domain.ErrMessageNotFound)
	}

	count := psql.RawQuery(`SELECT COUNT(*) FROM messages m WHERE `+filter, params.Username)
	total, err := bob.One(ctx, exec, count, scan.SingleColumnMapper[int])
	if err != nil {
		slog.ErrorContext(ctx, "GetMessagesForUser count error", slog.Any("error", err))
		return nil, 0, wrapMessageError(err, domain.ErrMessageNotFound)
	}
	return msgs, total, nil
}

func (r *PostgresMessageReader) GetParticipant(ctx context.Context, username string) (domain.Participant, error) {
	q := psql.Select(
		sm.Columns("id", "username"),
		sm.From(membersTable),
		sm.Where(psql.Quote("username").EQ(psql.Arg(username))),
	)
	row, err := bob.One(ctx, r.pool.Reader(), q, scan.StructMapper[ParticipantRow]())
	if err != nil {
		return domain.Participant{}, wrapMessageError(err, domain.ErrMemberNotFound)
	}
	return domain.Participant{ID: row.ID, Username: row.Username}, nil
}

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

	"datingapp/core/account/domain"
	"datingapp/modules/db"

	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

var _ domain.GraphStore = (*PostgresGraphStore)(nil)

type PostgresGraphStore struct {
	txm db.ReadTxManager
}

func NewPostgresGraphStore(txm db.ReadTxManager) *PostgresGraphStore {
	return &PostgresGraphStore{txm: txm}
}

var graphMemberColumns = []any{
	"id", "username", "known_as", "gender", "date_of_birth",
	"introduction", "looking_for", "interests", "city", "country",
	"created_at", "last_active", "version_number", mainPhotoColumn, rolesColumn,
}

const likesQuery = `
	SELECT m.id, m.username, m.known_as, m.date_of_birth, m.city,
	       COALESCE((SELECT p.url FROM photos p WHERE p.member_id = m.id AND p.is_main AND p.is_approved), '') AS photo_url
	FROM likes l
	JOIN members m ON m.id = l.%s
	WHERE l.%s = ?
	ORDER BY m.username
`

const messagesQuery = `
	SELECT id, sender_id, sender_username, recipient_id, recipient_username,
	       content, date_read, message_sent, sender_deleted, recipient_deleted
	FROM messages
	WHERE %s
	ORDER BY message_sent DESC, id DESC
`

// ExportGraph runs every query of the graph inside one read-only snapshot.
func (s *PostgresGraphStore) ExportGraph(ctx context.Context, lookup domain.GraphLookup) (*domain.Graph, error) {
	g := &domain.Graph{}
	err := s.txm.WithReadTx(ctx, func(ctx context.Context, q db.Querier) error {
		row, err := bob.One(ctx, q, memberQuery(lookup), scan.StructMapper[MemberRow]())
		if err != nil {
			return err
		}
		g.Member = toMember(row)
		id := row.ID

		photos, err := bob.All(ctx, q, psql.Select(
			sm.Columns("id", "member_id", "url", "public_id", "is_main", "is_approved", "created_at"),
			sm.From(photosTable),
			sm.Where(psql.Quote("member_id").EQ(psql.Arg(id))),
			sm.OrderBy("created_at"),
		), scan.StructMapper[PhotoRow]())
		if err != nil {
			return err
		}
		g.Photos = mapRows(photos, toPhoto)

		likedBy, err := bob.All(ctx, q, psql.RawQuery(fmt.Sprintf(likesQuery, "source_id", "liked_id"), id), scan.StructMapper[LikedMemberRow]())
		if err != nil {
			return err
		}
		g.LikedBy = mapRows(likedBy, toLikedMember)

		liked, err := bob.All(ctx, q, psql.RawQuery(fmt.Sprintf(likesQuery, "liked_id", "source_id"), id), scan.StructMapper[LikedMemberRow]())
		if err != nil {
			return err
		}
		g.Liked = mapRows(liked, toLikedMember)

		received, err := bob.All(ctx, q, psql.RawQuery(fmt.Sprintf(messagesQuery, "recipient_id = ? AND NOT recipient_deleted"), id), scan.StructMapper[MessageRow]())
		if err != nil {
			return err
		}
		g.MessagesReceived = mapRows(received, toMessage)

		sent, err := bob.All(ctx, q, psql.RawQuery(fmt.Sprintf(messagesQuery, "sender_id = ? AND NOT sender_deleted"), id), scan.StructMapper[MessageRow]())
		if err != nil {
			return err
		}
		g.MessagesSent = mapRows(sent, toMessage)
		return nil
	})
	if err != nil {
		return nil, wrapAccountError(err)
	}
	return g, nil
}

func memberQuery(lookup domain.GraphLookup) bob.Query {
	q := psql.Select(
		sm.Columns(graphMemberColumns...),
		sm.From(membersTable),
	)
	switch {
	case lookup.Username != "":
		q.Apply(sm.Where(psql.Quote("username").EQ(psql.Arg(lookup.Username))))
	case !lookup.ID.IsNil():
		q.Apply(sm.Where(psql.Quote("id").EQ(psql.Arg(lookup.ID))))
	default:
		q.Apply(sm.Where(psql.Quote("id").EQ(psql.Raw("(SELECT member_id FROM photos WHERE id = ?)", lookup.PhotoID))))
	}
	return q
}

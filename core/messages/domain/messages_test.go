package domain

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"datingapp/modules/clock"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	members  map[string]Participant
	messages map[uuid.UUID]*Message
	seq      time.Time
}

func newFakeStore(usernames ...string) *fakeStore {
	s := &fakeStore{
		members:  map[string]Participant{},
		messages: map[uuid.UUID]*Message{},
		seq:      now.Add(-time.Hour),
	}
	for _, u := range usernames {
		s.members[u] = Participant{ID: uuid.Must(uuid.NewV7()), Username: u}
	}
	return s
}

func (s *fakeStore) GetMessage(_ context.Context, id uuid.UUID) (*Message, error) {
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) GetMessagesForUser(_ context.Context, p MessageParams) ([]Message, int, error) {
	var out []Message
	for _, m := range s.messages {
		switch p.Container {
		case ContainerInbox:
			if m.RecipientUsername == p.Username && !m.RecipientDeleted {
				out = append(out, *m)
			}
		case ContainerOutbox:
			if m.SenderUsername == p.Username && !m.SenderDeleted {
				out = append(out, *m)
			}
		default:
			if m.RecipientUsername == p.Username && !m.RecipientDeleted && m.DateRead == nil {
				out = append(out, *m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageSent.After(out[j].MessageSent) })
	total := len(out)
	lo := min(p.Paging.Offset(), total)
	hi := min(lo+p.Paging.Limit(), total)
	return out[lo:hi], total, nil
}

func (s *fakeStore) GetParticipant(_ context.Context, username string) (Participant, error) {
	p, ok := s.members[username]
	if !ok {
		return Participant{}, ErrMemberNotFound
	}
	return p, nil
}

func (s *fakeStore) CreateMessage(_ context.Context, n *NewMessage) (*Message, error) {
	s.seq = s.seq.Add(time.Minute)
	m := &Message{
		ID:                n.ID,
		SenderID:          n.Sender.ID,
		SenderUsername:    n.Sender.Username,
		RecipientID:       n.Recipient.ID,
		RecipientUsername: n.Recipient.Username,
		Content:           n.Content,
		DateRead:          n.DateRead,
		MessageSent:       s.seq,
	}
	s.messages[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, MessageWriteTx) error) error {
	return fn(ctx, s)
}

func (s *fakeStore) GetMessageForUpdate(ctx context.Context, id uuid.UUID) (*Message, error) {
	return s.GetMessage(ctx, id)
}

func (s *fakeStore) UpdateDeletionFlags(_ context.Context, id uuid.UUID, sender, recipient bool) error {
	m := s.messages[id]
	m.SenderDeleted, m.RecipientDeleted = sender, recipient
	return nil
}

func (s *fakeStore) DeleteMessage(_ context.Context, id uuid.UUID) error {
	delete(s.messages, id)
	return nil
}

func (s *fakeStore) GetThread(_ context.Context, q ThreadQuery) ([]Message, error) {
	var out []Message
	for _, m := range s.messages {
		mine := m.SenderUsername == q.CurrentUsername && m.RecipientUsername == q.RecipientUsername && !m.SenderDeleted
		theirs := m.SenderUsername == q.RecipientUsername && m.RecipientUsername == q.CurrentUsername && !m.RecipientDeleted
		if !mine && !theirs {
			continue
		}
		if q.Before != nil && !m.MessageSent.Before(q.Before.MessageSent) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageSent.Before(out[j].MessageSent) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (s *fakeStore) MarkRead(_ context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		s.messages[id].DateRead = &at
	}
	return nil
}

// plainSigner base64-encodes payloads and rejects anything tampered with.
type plainSigner struct{}

func (plainSigner) Sign(payload []byte) (string, error) {
	return "v1." + base64.RawURLEncoding.EncodeToString(payload), nil
}

func (plainSigner) Verify(token string) ([]byte, error) {
	raw, ok := strings.CutPrefix(token, "v1.")
	if !ok {
		return nil, errors.New("bad token")
	}
	return base64.RawURLEncoding.DecodeString(raw)
}

func newTestApp(t *testing.T, usernames ...string) (*Application, *fakeStore) {
	t.Helper()
	s := newFakeStore(usernames...)
	return NewApp(s, s, plainSigner{}, WithClock(clock.Fixed(now))), s
}

func TestCreateMessage(t *testing.T) {
	app, _ := newTestApp(t, "lisa", "todd")
	ctx := context.Background()

	msg, err := app.CreateMessage(ctx, "Lisa", " todd ", "hi")
	require.NoError(t, err)
	assert.Equal(t, "lisa", msg.SenderUsername)
	assert.Equal(t, "todd", msg.RecipientUsername)
	assert.Nil(t, msg.DateRead)

	tests := []struct {
		name      string
		sender    string
		recipient string
		content   string
		want      error
	}{
		{"self", "lisa", "LISA", "hi", ErrSelfMessage},
		{"unknown recipient", "lisa", "bob", "hi", ErrMemberNotFound},
		{"empty content", "lisa", "todd", "", ErrInvalidData},
		{"too long", "lisa", "todd", strings.Repeat("x", MaxContentLength+1), ErrInvalidData},
		{"missing recipient", "lisa", "", "hi", ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.CreateMessage(ctx, tt.sender, tt.recipient, tt.content)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetMessagesForUser_Containers(t *testing.T) {
	app, s := newTestApp(t, "lisa", "todd")
	ctx := context.Background()

	first, err := app.CreateMessage(ctx, "todd", "lisa", "one")
	require.NoError(t, err)
	_, err = app.CreateMessage(ctx, "todd", "lisa", "two")
	require.NoError(t, err)
	_, err = app.CreateMessage(ctx, "lisa", "todd", "three")
	require.NoError(t, err)
	read := now
	s.messages[first.ID].DateRead = &read

	unread, err := app.GetMessagesForUser(ctx, MessageParams{Username: "lisa", Paging: paging.Params{}})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	assert.Equal(t, "two", unread.Items[0].Content)

	inbox, err := app.GetMessagesForUser(ctx, MessageParams{Username: "lisa", Container: ContainerInbox})
	require.NoError(t, err)
	assert.Equal(t, 2, inbox.TotalCount)
	assert.Equal(t, "two", inbox.Items[0].Content)

	outbox, err := app.GetMessagesForUser(ctx, MessageParams{Username: "lisa", Container: ContainerOutbox})
	require.NoError(t, err)
	require.Len(t, outbox.Items, 1)
	assert.Equal(t, "three", outbox.Items[0].Content)

	_, err = app.GetMessagesForUser(ctx, MessageParams{Username: "lisa", Container: "Trash"})
	assert.ErrorIs(t, err, ErrBadContainer)
}

func TestGetMessageThread_MarksRead(t *testing.T) {
	app, s := newTestApp(t, "lisa", "todd")
	ctx := context.Background()

	_, err := app.CreateMessage(ctx, "todd", "lisa", "hello")
	require.NoError(t, err)
	mine, err := app.CreateMessage(ctx, "lisa", "todd", "hey")
	require.NoError(t, err)

	page, err := app.GetMessageThread(ctx, ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd"})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "hello", page.Messages[0].Content)
	assert.Equal(t, "hey", page.Messages[1].Content)
	assert.Empty(t, page.NextCursor)

	require.NotNil(t, page.Messages[0].DateRead)
	assert.Equal(t, now, *page.Messages[0].DateRead)
	assert.Nil(t, page.Messages[1].DateRead, "own messages stay unread")
	assert.Nil(t, s.messages[mine.ID].DateRead)

	unread, err := app.GetMessagesForUser(ctx, MessageParams{Username: "lisa"})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestGetMessageThread_Cursor(t *testing.T) {
	app, _ := newTestApp(t, "lisa", "todd")
	ctx := context.Background()

	for _, c := range []string{"1", "2", "3", "4", "5"} {
		_, err := app.CreateMessage(ctx, "todd", "lisa", c)
		require.NoError(t, err)
	}

	var got []string
	before := ""
	for range 3 {
		page, err := app.GetMessageThread(ctx, ThreadParams{
			CurrentUsername:   "lisa",
			RecipientUsername: "todd",
			Limit:             2,
			Before:            before,
		})
		require.NoError(t, err)
		var batch []string
		for _, m := range page.Messages {
			batch = append(batch, m.Content)
		}
		got = append(batch, got...)
		if page.NextCursor == "" {
			break
		}
		before = page.NextCursor
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)

	_, err := app.GetMessageThread(ctx, ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd", Limit: 2, Before: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestGetMessageThread_ExpiredCursor(t *testing.T) {
	s := newFakeStore("lisa", "todd")
	current := now
	app := NewApp(s, s, plainSigner{}, WithClock(clock.Func(func() time.Time { return current })), WithCursorTTL(time.Minute))
	ctx := context.Background()

	for range 3 {
		_, err := app.CreateMessage(ctx, "todd", "lisa", "x")
		require.NoError(t, err)
	}
	page, err := app.GetMessageThread(ctx, ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd", Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, page.NextCursor)

	current = now.Add(2 * time.Minute)
	_, err = app.GetMessageThread(ctx, ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd", Limit: 2, Before: page.NextCursor})
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDeletionOutcome(t *testing.T) {
	msg := Message{SenderUsername: "lisa", RecipientUsername: "todd"}

	tests := []struct {
		name     string
		msg      Message
		username string
		want     Deletion
		err      error
	}{
		{"sender first", msg, "lisa", Deletion{SenderDeleted: true}, nil},
		{"recipient first", msg, "todd", Deletion{RecipientDeleted: true}, nil},
		{"sender after recipient", Message{SenderUsername: "lisa", RecipientUsername: "todd", RecipientDeleted: true}, "lisa", Deletion{SenderDeleted: true, RecipientDeleted: true, Purge: true}, nil},
		{"repeat delete", Message{SenderUsername: "lisa", RecipientUsername: "todd", SenderDeleted: true}, "lisa", Deletion{SenderDeleted: true}, nil},
		{"stranger", msg, "bob", Deletion{}, ErrNotParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeletionOutcome(tt.msg, tt.username)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeleteMessage(t *testing.T) {
	app, s := newTestApp(t, "lisa", "todd", "bob")
	ctx := context.Background()

	msg, err := app.CreateMessage(ctx, "lisa", "todd", "hi")
	require.NoError(t, err)

	assert.ErrorIs(t, app.DeleteMessage(ctx, "bob", msg.ID), ErrNotParticipant)
	assert.ErrorIs(t, app.DeleteMessage(ctx, "lisa", uuid.Must(uuid.NewV7())), ErrMessageNotFound)

	require.NoError(t, app.DeleteMessage(ctx, "lisa", msg.ID))
	require.Contains(t, s.messages, msg.ID)
	assert.True(t, s.messages[msg.ID].SenderDeleted)

	outbox, err := app.GetMessagesForUser(ctx, MessageParams{Username: "lisa", Container: ContainerOutbox})
	require.NoError(t, err)
	assert.Empty(t, outbox.Items)

	require.NoError(t, app.DeleteMessage(ctx, "todd", msg.ID))
	assert.NotContains(t, s.messages, msg.ID)
}

package domain

import (
	"context"
	"errors"
	"testing"

	"datingapp/modules/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGroups struct {
	conns map[string]Connection
	err   error
}

func newFakeGroups() *fakeGroups { return &fakeGroups{conns: map[string]Connection{}} }

func (g *fakeGroups) AddConnection(_ context.Context, c Connection) error {
	g.conns[c.ID] = c
	return nil
}

func (g *fakeGroups) GetConnection(_ context.Context, id string) (*Connection, error) {
	c, ok := g.conns[id]
	if !ok {
		return nil, ErrConnectionGone
	}
	return &c, nil
}

func (g *fakeGroups) RemoveConnection(_ context.Context, c Connection) error {
	delete(g.conns, c.ID)
	return nil
}

func (g *fakeGroups) GetGroup(_ context.Context, group string) ([]Connection, error) {
	if g.err != nil {
		return nil, g.err
	}
	var out []Connection
	for _, c := range g.conns {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out, nil
}

func newGroupApp(t *testing.T, usernames ...string) (*Application, *fakeStore, *fakeGroups) {
	t.Helper()
	s := newFakeStore(usernames...)
	g := newFakeGroups()
	return NewApp(s, s, plainSigner{}, WithClock(clock.Fixed(now)), WithGroups(g)), s, g
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "lisa-todd", GroupName("lisa", "todd"))
	assert.Equal(t, "lisa-todd", GroupName(" Todd", "LISA"))
}

func TestJoinThread(t *testing.T) {
	app, _, g := newGroupApp(t, "lisa", "todd")
	ctx := context.Background()

	conn, err := app.JoinThread(ctx, "Lisa", "todd")
	require.NoError(t, err)
	assert.Equal(t, "lisa", conn.Username)
	assert.Equal(t, "lisa-todd", conn.Group)
	assert.NotEmpty(t, conn.ID)
	assert.Contains(t, g.conns, conn.ID)

	_, err = app.JoinThread(ctx, "lisa", "lisa")
	assert.ErrorIs(t, err, ErrSelfMessage)
	_, err = app.JoinThread(ctx, "lisa", "bob")
	assert.ErrorIs(t, err, ErrMemberNotFound)
	_, err = app.JoinThread(ctx, "", "todd")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestLeaveThread(t *testing.T) {
	app, _, g := newGroupApp(t, "lisa", "todd")
	ctx := context.Background()

	conn, err := app.JoinThread(ctx, "lisa", "todd")
	require.NoError(t, err)

	assert.ErrorIs(t, app.LeaveThread(ctx, "todd", conn.ID), ErrNotParticipant)
	assert.Contains(t, g.conns, conn.ID)

	require.NoError(t, app.LeaveThread(ctx, "lisa", conn.ID))
	assert.NotContains(t, g.conns, conn.ID)

	assert.ErrorIs(t, app.LeaveThread(ctx, "lisa", conn.ID), ErrConnectionGone)
	assert.ErrorIs(t, app.LeaveThread(ctx, "lisa", ""), ErrInvalidData)
}

func TestCreateMessage_RecipientInThreadReadsOnArrival(t *testing.T) {
	app, _, _ := newGroupApp(t, "lisa", "todd")
	ctx := context.Background()

	msg, err := app.CreateMessage(ctx, "lisa", "todd", "before")
	require.NoError(t, err)
	assert.Nil(t, msg.DateRead)

	_, err = app.JoinThread(ctx, "lisa", "todd")
	require.NoError(t, err)
	msg, err = app.CreateMessage(ctx, "lisa", "todd", "sender only")
	require.NoError(t, err)
	assert.Nil(t, msg.DateRead, "the sender's own connection does not count")

	_, err = app.JoinThread(ctx, "todd", "lisa")
	require.NoError(t, err)
	msg, err = app.CreateMessage(ctx, "lisa", "todd", "seen")
	require.NoError(t, err)
	if assert.NotNil(t, msg.DateRead) {
		assert.Equal(t, now, *msg.DateRead)
	}
}

func TestGetMessageThread_RecipientOnline(t *testing.T) {
	app, _, g := newGroupApp(t, "lisa", "todd")
	ctx := context.Background()
	params := ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd"}

	page, err := app.GetMessageThread(ctx, params)
	require.NoError(t, err)
	assert.False(t, page.RecipientOnline)

	_, err = app.JoinThread(ctx, "todd", "lisa")
	require.NoError(t, err)
	page, err = app.GetMessageThread(ctx, params)
	require.NoError(t, err)
	assert.True(t, page.RecipientOnline)

	g.err = errors.New("redis down")
	page, err = app.GetMessageThread(ctx, params)
	require.NoError(t, err)
	assert.False(t, page.RecipientOnline)
}

func TestNoGroups_NobodyOnline(t *testing.T) {
	app, _ := newTestApp(t, "lisa", "todd")
	ctx := context.Background()

	conn, err := app.JoinThread(ctx, "todd", "lisa")
	require.NoError(t, err)
	msg, err := app.CreateMessage(ctx, "lisa", "todd", "hi")
	require.NoError(t, err)
	assert.Nil(t, msg.DateRead)
	assert.ErrorIs(t, app.LeaveThread(ctx, "todd", conn.ID), ErrConnectionGone)
}

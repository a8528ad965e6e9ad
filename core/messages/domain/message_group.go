package domain

import (
	"context"
	"log/slog"
	"slices"

	"github.com/gofrs/uuid/v5"
)

type noGroups struct{}

func (noGroups) AddConnection(context.Context, Connection) error { return nil }
func (noGroups) GetConnection(context.Context, string) (*Connection, error) {
	return nil, ErrConnectionGone
}
func (noGroups) RemoveConnection(context.Context, Connection) error     { return nil }
func (noGroups) GetGroup(context.Context, string) ([]Connection, error) { return nil, nil }

// GroupName names the thread between a and b the same from either side.
// Usernames are alphanumeric so the separator is unambiguous.
func GroupName(a, b string) string {
	a, b = normalizeUsername(a), normalizeUsername(b)
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// JoinThread opens a connection for current on the thread with other.
func (app *Application) JoinThread(ctx context.Context, currentUsername, otherUsername string) (*Connection, error) {
	current := normalizeUsername(currentUsername)
	other := normalizeUsername(otherUsername)
	if current == "" || other == "" {
		return nil, ErrInvalidData
	}
	if current == other {
		return nil, ErrSelfMessage
	}
	if _, err := app.reader.GetParticipant(ctx, other); err != nil {
		return nil, app.unexpected(ctx, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	conn := Connection{ID: id.String(), Username: current, Group: GroupName(current, other)}
	if err := app.groups.AddConnection(ctx, conn); err != nil {
		return nil, app.unexpected(ctx, err)
	}
	slog.DebugContext(ctx, "thread joined", slog.String("group", conn.Group), slog.String("connection", conn.ID))
	return &conn, nil
}

// LeaveThread closes one of current's connections.
func (app *Application) LeaveThread(ctx context.Context, currentUsername, connectionID string) error {
	current := normalizeUsername(currentUsername)
	if current == "" || connectionID == "" {
		return ErrInvalidData
	}
	conn, err := app.groups.GetConnection(ctx, connectionID)
	if err != nil {
		return app.unexpected(ctx, err)
	}
	if conn.Username != current {
		return ErrNotParticipant
	}
	if err := app.groups.RemoveConnection(ctx, *conn); err != nil {
		return app.unexpected(ctx, err)
	}
	return nil
}

// inThread reports whether username has the thread open. Tracker failures
// count as absent.
func (app *Application) inThread(ctx context.Context, group, username string) bool {
	conns, err := app.groups.GetGroup(ctx, group)
	if err != nil {
		slog.WarnContext(ctx, "message group read failed", slog.String("group", group), slog.Any("error", err))
		return false
	}
	return slices.ContainsFunc(conns, func(c Connection) bool { return c.Username == username })
}

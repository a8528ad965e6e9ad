package domain

import (
	"context"
	"log/slog"
	"strings"

	member "datingapp/core/member/domain"
)

// ExportGraph returns the member selected by lookup with photos, likes in
// both directions and messages in both directions.
func (app *Application) ExportGraph(ctx context.Context, lookup GraphLookup) (*Graph, error) {
	lookup.Username = strings.ToLower(strings.TrimSpace(lookup.Username))
	if !lookup.valid() {
		return nil, ErrInvalidData
	}

	g, err := app.graph.ExportGraph(ctx, lookup)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	now := app.clock.Now()
	g.Member.Age = member.AgeAt(g.Member.DateOfBirth, now)
	for i := range g.LikedBy {
		g.LikedBy[i].Age = member.AgeAt(g.LikedBy[i].DateOfBirth, now)
	}
	for i := range g.Liked {
		g.Liked[i].Age = member.AgeAt(g.Liked[i].DateOfBirth, now)
	}

	slog.DebugContext(ctx, "graph exported",
		slog.String("username", g.Member.Username),
		slog.Int("photos", len(g.Photos)),
		slog.Int("liked_by", len(g.LikedBy)),
		slog.Int("liked", len(g.Liked)),
		slog.Int("received", len(g.MessagesReceived)),
		slog.Int("sent", len(g.MessagesSent)),
	)
	return g, nil
}

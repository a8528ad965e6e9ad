package domain

import (
	"context"
	"log/slog"
	"strings"
)

type noCache struct{}

func (noCache) Get(context.Context, string) (*Member, error) { return nil, nil }
func (noCache) Set(context.Context, string, Member) error    { return nil }
func (noCache) Invalidate(context.Context, ...string) error  { return nil }

// Owners see unapproved photos, so each member has two cached views.
func cacheKey(username string, owner bool) string {
	if owner {
		return username + ":owner"
	}
	return username + ":public"
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// invalidate drops both cached views of username. Failures are logged; the
// entry expires on its own.
func (app *Application) invalidate(ctx context.Context, username string) {
	if err := app.cache.Invalidate(ctx, cacheKey(username, true), cacheKey(username, false)); err != nil {
		slog.WarnContext(ctx, "member cache invalidation failed",
			slog.String("username", username),
			slog.Any("error", err),
		)
	}
}

package domain

import (
	"context"
	"log/slog"

	"datingapp/modules/paging"
)

// GetMessagesForUser pages through one of the user's containers, newest first.
func (app *Application) GetMessagesForUser(ctx context.Context, params MessageParams) (paging.PagedList[Message], error) {
	params.Username = normalizeUsername(params.Username)
	if params.Username == "" {
		return paging.PagedList[Message]{}, ErrInvalidData
	}
	if params.Container == "" {
		params.Container = ContainerUnread
	}
	if !params.Container.Valid() {
		return paging.PagedList[Message]{}, ErrBadContainer
	}
	params.Paging = params.Paging.Normalize()

	slog.DebugContext(ctx, "list messages",
		slog.String("container", string(params.Container)),
		slog.Int("page", params.Paging.PageNumber),
		slog.Int("page_size", params.Paging.PageSize),
	)

	msgs, total, err := app.reader.GetMessagesForUser(ctx, params)
	if err != nil {
		return paging.PagedList[Message]{}, app.unexpected(ctx, err)
	}
	return paging.NewPagedList(msgs, total, params.Paging), nil
}

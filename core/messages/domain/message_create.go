package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
)

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CreateMessage sends content from senderUsername to recipientUsername. A
// recipient who has the thread open has read it on arrival.
func (app *Application) CreateMessage(ctx context.Context, senderUsername, recipientUsername, content string) (*Message, error) {
	sender := normalizeUsername(senderUsername)
	recipient := normalizeUsername(recipientUsername)
	if sender == "" || recipient == "" {
		return nil, ErrInvalidData
	}
	if sender == recipient {
		return nil, ErrSelfMessage
	}
	if n := utf8.RuneCountInString(content); n == 0 || n > MaxContentLength {
		return nil, ErrInvalidData
	}

	to, err := app.reader.GetParticipant(ctx, recipient)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	from, err := app.reader.GetParticipant(ctx, sender)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	nm := &NewMessage{ID: id, Sender: from, Recipient: to, Content: content}
	if app.inThread(ctx, GroupName(sender, recipient), recipient) {
		now := app.clock.Now()
		nm.DateRead = &now
	}
	msg, err := app.writer.CreateMessage(ctx, nm)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return msg, nil
}

func (app *Application) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	if id.IsNil() {
		return nil, ErrInvalidData
	}
	msg, err := app.reader.GetMessage(ctx, id)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return msg, nil
}

func (app *Application) unexpected(ctx context.Context, err error) error {
	for _, known := range []error{ErrMessageNotFound, ErrMemberNotFound, ErrNotParticipant, ErrInvalidData, ErrInvalidCursor, ErrConnectionGone} {
		if errors.Is(err, known) {
			return known
		}
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

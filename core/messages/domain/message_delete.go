package domain

import (
	"context"
	"log/slog"

	"github.com/gofrs/uuid/v5"
)

// DeletionOutcome decides what deleting msg means for username. A member who
// is on both sides cannot exist, since self messages are rejected.
func DeletionOutcome(msg Message, username string) (Deletion, error) {
	isSender := msg.SenderUsername == username
	isRecipient := msg.RecipientUsername == username
	if !isSender && !isRecipient {
		return Deletion{}, ErrNotParticipant
	}

	d := Deletion{
		SenderDeleted:    msg.SenderDeleted || isSender,
		RecipientDeleted: msg.RecipientDeleted || isRecipient,
	}
	d.Purge = d.SenderDeleted && d.RecipientDeleted
	return d, nil
}

// DeleteMessage hides the message from username, removing the row once both
// sides deleted it.
func (app *Application) DeleteMessage(ctx context.Context, username string, id uuid.UUID) error {
	username = normalizeUsername(username)
	if username == "" || id.IsNil() {
		return ErrInvalidData
	}

	err := app.writer.WithTx(ctx, func(ctx context.Context, tx MessageWriteTx) error {
		msg, err := tx.GetMessageForUpdate(ctx, id)
		if err != nil {
			return err
		}
		d, err := DeletionOutcome(*msg, username)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "delete message",
			slog.String("id", id.String()),
			slog.Bool("purge", d.Purge),
		)
		if d.Purge {
			return tx.DeleteMessage(ctx, id)
		}
		return tx.UpdateDeletionFlags(ctx, id, d.SenderDeleted, d.RecipientDeleted)
	})
	if err != nil {
		return app.unexpected(ctx, err)
	}
	return nil
}

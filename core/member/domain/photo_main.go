package domain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofrs/uuid/v5"
)

// ownedPhoto locks username and returns photoID when username owns it.
func ownedPhoto(ctx context.Context, tx MemberWriteTx, username string, photoID uuid.UUID) (*Photo, error) {
	memberID, err := tx.LockMemberByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	photo, err := tx.GetPhotoForUpdate(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.MemberID != memberID {
		return nil, ErrPhotoNotFound
	}
	return photo, nil
}

// SetMainPhoto makes photoID the main photo of username, demoting the
// current one.
func (app *Application) SetMainPhoto(ctx context.Context, username string, photoID uuid.UUID) error {
	username = normalizeUsername(username)
	if username == "" || photoID.IsNil() {
		return ErrInvalidData
	}

	err := app.writer.WithTx(ctx, func(ctx context.Context, tx MemberWriteTx) error {
		photo, err := ownedPhoto(ctx, tx, username, photoID)
		if err != nil {
			return err
		}
		if photo.IsMain {
			return ErrAlreadyMain
		}
		current, err := tx.GetMainPhoto(ctx, photo.MemberID)
		if err != nil {
			return err
		}
		// demote first: the partial unique index allows one main per member
		if current != nil {
			if err := tx.SetMain(ctx, current.ID, false); err != nil {
				return err
			}
		}
		return tx.SetMain(ctx, photo.ID, true)
	})
	if err != nil {
		return app.photoError(ctx, err)
	}
	app.invalidate(ctx, username)
	return nil
}

func (app *Application) photoError(ctx context.Context, err error) error {
	for _, known := range []error{ErrMemberNotFound, ErrPhotoNotFound, ErrAlreadyMain, ErrPhotoIsMain, ErrInvalidData} {
		if errors.Is(err, known) {
			return known
		}
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

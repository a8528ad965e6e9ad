package domain

import (
	"context"
	"log/slog"

	"github.com/gofrs/uuid/v5"
)

// DeletePhoto removes one of username's photos. The file itself is queued
// for the purge job in the same transaction.
func (app *Application) DeletePhoto(ctx context.Context, username string, photoID uuid.UUID) error {
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
			return ErrPhotoIsMain
		}
		return removePhoto(ctx, tx, photo)
	})
	if err != nil {
		return app.photoError(ctx, err)
	}
	app.invalidate(ctx, username)
	return nil
}

func removePhoto(ctx context.Context, tx MemberWriteTx, photo *Photo) error {
	if err := tx.DeletePhoto(ctx, photo.ID); err != nil {
		return err
	}
	if photo.PublicID == "" {
		return nil
	}
	return tx.EnqueueAssetDeletion(ctx, photo.PublicID)
}

func lockPhotoOwner(ctx context.Context, tx MemberWriteTx, photoID uuid.UUID) (string, *Photo, error) {
	unlocked, err := tx.GetPhoto(ctx, photoID)
	if err != nil {
		return "", nil, err
	}
	owner, err := tx.LockMemberByID(ctx, unlocked.MemberID)
	if err != nil {
		return "", nil, err
	}
	photo, err := tx.GetPhotoForUpdate(ctx, photoID)
	if err != nil {
		return "", nil, err
	}
	return owner, photo, nil
}

// ApprovePhoto marks photoID approved. It becomes the owner's main photo when
// the owner has none.
func (app *Application) ApprovePhoto(ctx context.Context, photoID uuid.UUID) error {
	if photoID.IsNil() {
		return ErrInvalidData
	}

	var owner string
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx MemberWriteTx) error {
		var (
			photo *Photo
			err   error
		)
		owner, photo, err = lockPhotoOwner(ctx, tx, photoID)
		if err != nil {
			return err
		}
		if _, err := tx.SetApproved(ctx, photo.ID); err != nil {
			return err
		}
		if photo.IsMain {
			return nil
		}
		main, err := tx.GetMainPhoto(ctx, photo.MemberID)
		if err != nil {
			return err
		}
		if main == nil {
			return tx.SetMain(ctx, photo.ID, true)
		}
		return nil
	})
	if err != nil {
		return app.photoError(ctx, err)
	}
	app.invalidate(ctx, owner)
	slog.DebugContext(ctx, "approved photo", slog.String("photo_id", photoID.String()), slog.String("owner", owner))
	return nil
}

// RejectPhoto deletes photoID and queues its file for removal.
func (app *Application) RejectPhoto(ctx context.Context, photoID uuid.UUID) error {
	if photoID.IsNil() {
		return ErrInvalidData
	}

	var owner string
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx MemberWriteTx) error {
		var (
			photo *Photo
			err   error
		)
		owner, photo, err = lockPhotoOwner(ctx, tx, photoID)
		if err != nil {
			return err
		}
		return removePhoto(ctx, tx, photo)
	})
	if err != nil {
		return app.photoError(ctx, err)
	}
	app.invalidate(ctx, owner)
	return nil
}

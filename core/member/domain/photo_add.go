// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/gofrs/uuid/v5"
)

var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// AddPhoto stores the upload and attaches it to username. The first photo of
// a member becomes the main one. A stored file whose row could not be
// written is removed again.
func (app *Application) AddPhoto(ctx context.Context, username, fileName, contentType string, r io.Reader) (*Photo, error) {
	username = normalizeUsername(username)
	if username == "" || r == nil {
		return nil, ErrInvalidData
	}
	if _, ok := imageTypes[contentType]; !ok {
		return nil, ErrUnsupportedImage
	}

	url, publicID, err := app.images.Save(ctx, fileName, contentType, r)
	if err != nil {
		slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
		return nil, ErrUnhandled
	}

	var created *Photo
	err = app.writer.WithTx(ctx, func(ctx context.Context, tx MemberWriteTx) error {
		memberID, err := tx.LockMemberByUsername(ctx, username)
		if err != nil {
			return err
		}
		n, err := tx.CountPhotos(ctx, memberID)
		if err != nil {
			return err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		created, err = tx.InsertPhoto(ctx, &NewPhoto{
			ID:       id,
			MemberID: memberID,
			URL:      url,
			PublicID: publicID,
			IsMain:   n == 0,
		})
		return err
	})
	if err != nil {
		if derr := app.images.Delete(context.WithoutCancel(ctx), publicID); derr != nil {
			slog.WarnContext(ctx, "orphaned image", slog.String("public_id", publicID), slog.Any("error", derr))
		}
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
		return nil, ErrUnhandled
	}

	app.invalidate(ctx, username)
	slog.DebugContext(ctx, "added photo",
		slog.String("username", username),
		slog.String("photo_id", created.ID.String()),
		slog.Bool("main", created.IsMain),
	)
	return created, nil
}

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
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
)

// UpdateMember replaces the caller's profile fields and returns the member
// with its new version.
func (app *Application) UpdateMember(ctx context.Context, params UpdateMemberParams) (*Member, error) {
	params.Username = normalizeUsername(params.Username)
	if params.Username == "" || params.Version < 0 {
		return nil, ErrInvalidData
	}

	updated, err := app.writer.UpdateMember(ctx, &params)
	if err != nil {
		return nil, app.writeError(ctx, params.Username, params.Version, err)
	}
	app.invalidate(ctx, params.Username)
	return updated, nil
}

// ModifyMember applies patch: absent fields stay, null fields are cleared.
func (app *Application) ModifyMember(ctx context.Context, patch MemberPatch) (*Member, error) {
	patch.Username = normalizeUsername(patch.Username)
	if patch.Username == "" || patch.Version < 0 || patch.Empty() {
		return nil, ErrInvalidData
	}

	updated, err := app.writer.ModifyMember(ctx, &patch)
	if err != nil {
		return nil, app.writeError(ctx, patch.Username, patch.Version, err)
	}
	app.invalidate(ctx, patch.Username)
	return updated, nil
}

// TouchLastActive records that the member was seen at at.
func (app *Application) TouchLastActive(ctx context.Context, memberID uuid.UUID, at time.Time) error {
	if memberID.IsNil() {
		return ErrInvalidData
	}
	if at.IsZero() {
		at = app.clock.Now()
	}
	username, err := app.writer.TouchLastActive(ctx, memberID, at)
	if err == nil {
		app.invalidate(ctx, username)
		return nil
	}
	if errors.Is(err, ErrMemberNotFound) {
		return err
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

// writeError tells a version mismatch apart from a missing member: both
// surface as "no row updated".
func (app *Application) writeError(ctx context.Context, username string, version int64, err error) error {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		if version == 0 {
			return ErrMemberNotFound
		}
		if _, gerr := app.reader.GetMemberGender(ctx, username); gerr == nil {
			return ErrPrecondition
		}
		return ErrMemberNotFound
	case errors.Is(err, ErrPrecondition):
		return ErrPrecondition
	case errors.Is(err, ErrInvalidData):
		return ErrInvalidData
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

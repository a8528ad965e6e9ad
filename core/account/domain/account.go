package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"datingapp/modules/auth"

	"github.com/gofrs/uuid/v5"
)

func (app *Application) Register(ctx context.Context, reg Registration) (*UserToken, error) {
	reg.Username = strings.ToLower(strings.TrimSpace(reg.Username))
	if err := app.validate(reg); err != nil {
		return nil, err
	}

	hash, err := app.hasher.Hash(reg.Password)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	roles := []string{auth.RoleMember}
	if _, ok := app.admins[reg.Username]; ok {
		roles = append(roles, auth.RoleAdmin, auth.RoleModerator)
	}

	acc, err := app.store.CreateAccount(ctx, &NewAccount{
		ID:           id,
		Username:     reg.Username,
		PasswordHash: hash,
		KnownAs:      strings.TrimSpace(reg.KnownAs),
		Gender:       reg.Gender,
		DateOfBirth:  reg.DateOfBirth,
		City:         strings.TrimSpace(reg.City),
		Country:      strings.TrimSpace(reg.Country),
		Roles:        roles,
	})
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	slog.InfoContext(ctx, "member registered", slog.String("username", acc.Username), slog.Any("roles", acc.Roles))
	return app.issue(ctx, acc)
}

func (app *Application) validate(reg Registration) error {
	if n := utf8.RuneCountInString(reg.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidData
	}
	if n := utf8.RuneCountInString(reg.Password); n < MinPasswordLength || n > MaxPasswordLength {
		return ErrInvalidData
	}
	if reg.Gender != "male" && reg.Gender != "female" {
		return ErrInvalidData
	}
	if reg.DateOfBirth.IsZero() || !reg.DateOfBirth.Before(app.clock.Now()) {
		return ErrInvalidData
	}
	if strings.TrimSpace(reg.KnownAs) == "" {
		return ErrInvalidData
	}
	return nil
}

// Login answers ErrInvalidCredentials for both an unknown user and a wrong
// password.
func (app *Application) Login(ctx context.Context, username, password string) (*UserToken, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	acc, err := app.store.GetAccount(ctx, username)
	if errors.Is(err, ErrMemberNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	if err := app.hasher.Compare(acc.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, app.unexpected(ctx, err)
	}
	return app.issue(ctx, acc)
}

func (app *Application) issue(ctx context.Context, acc *Account) (*UserToken, error) {
	token, err := app.tokens.Issue(auth.Principal{MemberID: acc.ID, Username: acc.Username, Roles: acc.Roles})
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return &UserToken{
		Username: acc.Username,
		KnownAs:  acc.KnownAs,
		Gender:   acc.Gender,
		PhotoURL: acc.PhotoURL,
		Token:    token,
	}, nil
}

func (app *Application) unexpected(ctx context.Context, err error) error {
	for _, known := range []error{ErrUsernameTaken, ErrMemberNotFound, ErrInvalidCredentials, ErrInvalidData} {
		if errors.Is(err, known) {
			return known
		}
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

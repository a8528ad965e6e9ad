package domain

import "errors"

var (
	ErrUsernameTaken      = errors.New("username is taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidData        = errors.New("invalid data provided for account operations")
	ErrUnhandled          = errors.New("unexpected error")
)

package domain

import "errors"

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrPhotoNotFound    = errors.New("photo not found")
	ErrPhotoIsMain      = errors.New("you cannot delete your main photo")
	ErrAlreadyMain      = errors.New("this is already your main photo")
	ErrUnsupportedImage = errors.New("only jpeg, png, gif and webp images are accepted")
	ErrInvalidData      = errors.New("invalid data provided for member operations")
	ErrPrecondition     = errors.New("member was modified concurrently")
	ErrUnhandled        = errors.New("unexpected error")
)

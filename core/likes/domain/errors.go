package domain

import "errors"

var (
	ErrLikeNotFound   = errors.New("like not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrSelfLike       = errors.New("you cannot like yourself")
	ErrAlreadyLiked   = errors.New("you already like this user")
	ErrBadPredicate   = errors.New("predicate must be liked or likedBy")
	ErrInvalidData    = errors.New("invalid data provided for like operations")
	ErrUnhandled      = errors.New("unexpected error")
)

package domain

import "errors"

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrSelfMessage     = errors.New("you cannot send messages to yourself")
	ErrNotParticipant  = errors.New("you are not part of this conversation")
	ErrBadContainer    = errors.New("container must be Inbox, Outbox or Unread")
	ErrInvalidCursor   = errors.New("invalid or expired cursor")
	ErrConnectionGone  = errors.New("connection not found")
	ErrInvalidData     = errors.New("invalid data provided for message operations")
	ErrUnhandled       = errors.New("unexpected error")
)

package domain

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

type MessageReadStore interface {
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	// GetMessagesForUser returns one page, newest first, and the total.
	GetMessagesForUser(ctx context.Context, params MessageParams) ([]Message, int, error)
	GetParticipant(ctx context.Context, username string) (Participant, error)
}

type MessageWriteStore interface {
	CreateMessage(ctx context.Context, msg *NewMessage) (*Message, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx MessageWriteTx) error) error
}

type MessageWriteTx interface {
	GetMessageForUpdate(ctx context.Context, id uuid.UUID) (*Message, error)
	UpdateDeletionFlags(ctx context.Context, id uuid.UUID, senderDeleted, recipientDeleted bool) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error

	// GetThread returns the messages of q, oldest first, hiding the ones the
	// current user deleted.
	GetThread(ctx context.Context, q ThreadQuery) ([]Message, error)
	MarkRead(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// GroupTracker records which connections have a thread open. Entries expire
// unless the connection joins again.
type GroupTracker interface {
	AddConnection(ctx context.Context, conn Connection) error
	// GetConnection returns ErrConnectionGone for unknown or expired ids.
	GetConnection(ctx context.Context, id string) (*Connection, error)
	RemoveConnection(ctx context.Context, conn Connection) error
	GetGroup(ctx context.Context, group string) ([]Connection, error)
}

// CursorSigner signs and verifies opaque cursor tokens.
type CursorSigner interface {
	Sign(payload []byte) (string, error)
	Verify(token string) ([]byte, error)
}

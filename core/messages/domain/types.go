package domain

import (
	"time"

	"datingapp/modules/clock"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

type Container string

const (
	ContainerInbox  Container = "Inbox"
	ContainerOutbox Container = "Outbox"
	ContainerUnread Container = "Unread"

	MaxContentLength = 2000
	MaxThreadLimit   = 100
	DefaultCursorTTL = 24 * time.Hour
)

type (
	Application struct {
		reader    MessageReadStore
		writer    MessageWriteStore
		signer    CursorSigner
		groups    GroupTracker
		clock     clock.Clock
		cursorTTL time.Duration
	}

	Message struct {
		ID                uuid.UUID
		SenderID          uuid.UUID
		SenderUsername    string
		SenderPhotoURL    string
		RecipientID       uuid.UUID
		RecipientUsername string
		RecipientPhotoURL string
		Content           string
		DateRead          *time.Time
		MessageSent       time.Time
		SenderDeleted     bool
		RecipientDeleted  bool
	}

	MessageParams struct {
		Username  string
		Container Container
		Paging    paging.Params
	}

	// Participant is one end of a conversation.
	Participant struct {
		ID       uuid.UUID
		Username string
	}

	// NewMessage is stored as read when DateRead is set.
	NewMessage struct {
		ID        uuid.UUID
		Sender    Participant
		Recipient Participant
		Content   string
		DateRead  *time.Time
	}

	// Connection is one open view of a thread. Group names the thread.
	Connection struct {
		ID       string
		Username string
		Group    string
	}

	// ThreadParams asks for the conversation between two members. Limit 0
	// returns the whole thread; Before continues from a previous page.
	ThreadParams struct {
		CurrentUsername   string
		RecipientUsername string
		Limit             int
		Before            string
	}

	// ThreadQuery is ThreadParams with the cursor decoded.
	ThreadQuery struct {
		CurrentUsername   string
		RecipientUsername string
		Limit             int
		Before            *ThreadPivot
	}

	// ThreadPivot is the oldest message of the previous page.
	ThreadPivot struct {
		MessageSent time.Time `json:"sent"`
		ID          uuid.UUID `json:"id"`
	}

	ThreadPage struct {
		Messages        []Message
		NextCursor      string
		RecipientOnline bool
	}

	// Deletion is what deleting a message means for one caller.
	Deletion struct {
		SenderDeleted    bool
		RecipientDeleted bool
		// Purge is set once both sides deleted the message.
		Purge bool
	}
)

func (c Container) Valid() bool {
	return c == ContainerInbox || c == ContainerOutbox || c == ContainerUnread
}

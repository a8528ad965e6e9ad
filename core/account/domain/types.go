package domain

import (
	"time"

	likes "datingapp/core/likes/domain"
	member "datingapp/core/member/domain"
	messages "datingapp/core/messages/domain"
	"datingapp/modules/clock"

	"github.com/gofrs/uuid/v5"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 6
	MaxPasswordLength = 64
)

type (
	Application struct {
		store  AccountStore
		graph  GraphStore
		hasher PasswordHasher
		tokens TokenIssuer
		clock  clock.Clock
		admins map[string]struct{}
	}

	Registration struct {
		Username    string
		Password    string
		KnownAs     string
		Gender      string
		DateOfBirth time.Time
		City        string
		Country     string
	}

	NewAccount struct {
		ID           uuid.UUID
		Username     string
		PasswordHash []byte
		KnownAs      string
		Gender       string
		DateOfBirth  time.Time
		City         string
		Country      string
		Roles        []string
	}

	// Account is what login needs to know about a member.
	Account struct {
		ID           uuid.UUID
		Username     string
		PasswordHash []byte
		KnownAs      string
		Gender       string
		PhotoURL     string
		Roles        []string
	}

	UserToken struct {
		Username string
		KnownAs  string
		Gender   string
		PhotoURL string
		Token    string
	}

	// GraphLookup selects the member whose graph is exported. Exactly one
	// field is set.
	GraphLookup struct {
		Username string
		ID       uuid.UUID
		PhotoID  uuid.UUID
	}

	// Graph is a member with everything attached to them, read from one
	// snapshot.
	Graph struct {
		Member           member.Member
		Photos           []member.Photo
		LikedBy          []likes.LikedMember
		Liked            []likes.LikedMember
		MessagesReceived []messages.Message
		MessagesSent     []messages.Message
	}
)

func (l GraphLookup) valid() bool {
	n := 0
	if l.Username != "" {
		n++
	}
	if !l.ID.IsNil() {
		n++
	}
	if !l.PhotoID.IsNil() {
		n++
	}
	return n == 1
}

package domain

import (
	"time"

	"datingapp/modules/clock"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

type Predicate string

const (
	PredicateLiked   Predicate = "liked"
	PredicateLikedBy Predicate = "likedBy"
)

type (
	Application struct {
		reader LikesReadStore
		writer LikesWriteStore
		clock  clock.Clock
	}

	Like struct {
		SourceID uuid.UUID
		LikedID  uuid.UUID
		Created  time.Time
	}

	// LikedMember is the other side of a like, in either direction.
	LikedMember struct {
		ID          uuid.UUID
		Username    string
		DateOfBirth time.Time
		Age         int
		KnownAs     string
		PhotoURL    string
		City        string
	}

	LikesParams struct {
		UserID    uuid.UUID
		Predicate Predicate
		Paging    paging.Params
	}

	// MemberWithLikes is a member and everyone they liked.
	MemberWithLikes struct {
		ID       uuid.UUID
		Username string
		LikedIDs []uuid.UUID
	}
)

func (p Predicate) Valid() bool { return p == PredicateLiked || p == PredicateLikedBy }

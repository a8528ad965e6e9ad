package domain

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type LikesReadStore interface {
	GetUserLike(ctx context.Context, sourceID, likedID uuid.UUID) (*Like, error)
	// GetUserLikes returns one page ordered by username and the total.
	GetUserLikes(ctx context.Context, params LikesParams) ([]LikedMember, int, error)
	GetUserWithLikes(ctx context.Context, userID uuid.UUID) (*MemberWithLikes, error)
	GetMemberID(ctx context.Context, username string) (uuid.UUID, error)
}

type LikesWriteStore interface {
	AddLike(ctx context.Context, sourceID, likedID uuid.UUID) (*Like, error)
}

package domain

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	memberdomain "datingapp/core/member/domain"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

func (app *Application) GetUserLike(ctx context.Context, sourceID, likedID uuid.UUID) (*Like, error) {
	like, err := app.reader.GetUserLike(ctx, sourceID, likedID)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return like, nil
}

// GetUserLikes pages through the members userID liked, or who liked userID.
func (app *Application) GetUserLikes(ctx context.Context, params LikesParams) (paging.PagedList[LikedMember], error) {
	if params.UserID.IsNil() {
		return paging.PagedList[LikedMember]{}, ErrInvalidData
	}
	if !params.Predicate.Valid() {
		return paging.PagedList[LikedMember]{}, ErrBadPredicate
	}
	params.Paging = params.Paging.Normalize()

	members, total, err := app.reader.GetUserLikes(ctx, params)
	if err != nil {
		return paging.PagedList[LikedMember]{}, app.unexpected(ctx, err)
	}
	now := app.clock.Now()
	for i := range members {
		members[i].Age = memberdomain.AgeAt(members[i].DateOfBirth, now)
	}
	return paging.NewPagedList(members, total, params.Paging), nil
}

func (app *Application) GetUserWithLikes(ctx context.Context, userID uuid.UUID) (*MemberWithLikes, error) {
	m, err := app.reader.GetUserWithLikes(ctx, userID)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return m, nil
}

// AddLike records that sourceUsername likes likedUsername.
func (app *Application) AddLike(ctx context.Context, sourceUsername, likedUsername string) (*Like, error) {
	source := strings.ToLower(strings.TrimSpace(sourceUsername))
	target := strings.ToLower(strings.TrimSpace(likedUsername))
	if source == "" || target == "" {
		return nil, ErrInvalidData
	}
	if source == target {
		return nil, ErrSelfLike
	}

	likedID, err := app.reader.GetMemberID(ctx, target)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	sourceID, err := app.reader.GetMemberID(ctx, source)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	current, err := app.reader.GetUserWithLikes(ctx, sourceID)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	if slices.Contains(current.LikedIDs, likedID) {
		return nil, ErrAlreadyLiked
	}

	// a concurrent like of the same pair fails on the primary key
	like, err := app.writer.AddLike(ctx, sourceID, likedID)
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}
	return like, nil
}

func (app *Application) unexpected(ctx context.Context, err error) error {
	for _, known := range []error{ErrLikeNotFound, ErrMemberNotFound, ErrAlreadyLiked, ErrSelfLike, ErrInvalidData} {
		if errors.Is(err, known) {
			return known
		}
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

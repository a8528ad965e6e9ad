package domain

import (
	"context"
	"errors"
	"log/slog"

	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

func (app *Application) GetMembers(ctx context.Context, params MemberParams) (paging.PagedList[Member], error) {
	current := normalizeUsername(params.CurrentUsername)
	if params.MinAge == 0 {
		params.MinAge = DefaultMinAge
	}
	if params.MaxAge == 0 {
		params.MaxAge = DefaultMaxAge
	}
	params.Paging = params.Paging.Normalize()
	if current == "" || params.MinAge < 0 || params.MaxAge < params.MinAge {
		return paging.PagedList[Member]{}, ErrInvalidData
	}

	gender := params.Gender
	if gender == "" {
		own, err := app.reader.GetMemberGender(ctx, current)
		if err != nil {
			return paging.PagedList[Member]{}, app.readError(ctx, err)
		}
		gender = own.Opposite()
	}
	if !gender.Valid() {
		return paging.PagedList[Member]{}, ErrInvalidData
	}

	orderBy := params.OrderBy
	switch orderBy {
	case "":
		orderBy = OrderByLastActive
	case OrderByLastActive, OrderByCreated:
	default:
		return paging.PagedList[Member]{}, ErrInvalidData
	}

	now := app.clock.Now()
	after, onOrBefore := DateOfBirthWindow(now, params.MinAge, params.MaxAge)
	q := MemberQuery{
		ExcludeUsername: current,
		Gender:          gender,
		DobAfter:        after,
		DobOnOrBefore:   onOrBefore,
		OrderBy:         orderBy,
		Paging:          params.Paging,
	}
	slog.DebugContext(ctx, "browse members",
		slog.String("gender", string(gender)),
		slog.Time("dob_after", after),
		slog.Time("dob_on_or_before", onOrBefore),
		slog.Int("page", q.Paging.PageNumber),
		slog.Int("page_size", q.Paging.PageSize),
	)

	members, total, err := app.reader.GetMembers(ctx, q)
	if err != nil {
		return paging.PagedList[Member]{}, app.readError(ctx, err)
	}
	for i := range members {
		members[i].Age = AgeAt(members[i].DateOfBirth, now)
	}
	return paging.NewPagedList(members, total, q.Paging), nil
}

// GetMember returns username's profile. Only the owner sees unapproved photos.
func (app *Application) GetMember(ctx context.Context, username string, isCurrentUser bool) (*Member, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, ErrInvalidData
	}

	key := cacheKey(username, isCurrentUser)
	cached, err := app.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "member cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	if cached != nil {
		cached.Age = AgeAt(cached.DateOfBirth, app.clock.Now())
		return cached, nil
	}

	m, err := app.reader.GetMemberByUsername(ctx, username, isCurrentUser)
	if err != nil {
		return nil, app.readError(ctx, err)
	}
	m.Age = AgeAt(m.DateOfBirth, app.clock.Now())

	if err := app.cache.Set(ctx, key, *m); err != nil {
		slog.WarnContext(ctx, "member cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return m, nil
}

func (app *Application) GetMemberGender(ctx context.Context, username string) (Gender, error) {
	username = normalizeUsername(username)
	if username == "" {
		return "", ErrInvalidData
	}
	g, err := app.reader.GetMemberGender(ctx, username)
	if err != nil {
		return "", app.readError(ctx, err)
	}
	return g, nil
}

func (app *Application) GetPhotoByID(ctx context.Context, id uuid.UUID) (*Photo, error) {
	if id.IsNil() {
		return nil, ErrInvalidData
	}
	p, err := app.reader.GetPhotoByID(ctx, id)
	if err != nil {
		return nil, app.readError(ctx, err)
	}
	return p, nil
}

func (app *Application) GetUnapprovedPhotos(ctx context.Context) ([]PhotoForApproval, error) {
	photos, err := app.reader.GetUnapprovedPhotos(ctx)
	if err != nil {
		return nil, app.readError(ctx, err)
	}
	return photos, nil
}

func (app *Application) readError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, ErrPhotoNotFound):
		return ErrPhotoNotFound
	case errors.Is(err, ErrInvalidData):
		return ErrInvalidData
	}
	slog.ErrorContext(ctx, "unexpected error", slog.Any("error", err))
	return ErrUnhandled
}

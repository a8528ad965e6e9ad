package rest

import (
	"context"
	"errors"
	"net/http"

	"datingapp/core/likes/domain"
	"datingapp/modules/api/dto"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/middleware/problem"
	"datingapp/modules/paging"
)

type LikesService interface {
	AddLike(ctx context.Context, sourceUsername, likedUsername string) (*domain.Like, error)
	GetUserLikes(ctx context.Context, params domain.LikesParams) (paging.PagedList[domain.LikedMember], error)
}

var _ LikesService = (*domain.Application)(nil)

// LikesAPI serves /api/likes.
type LikesAPI struct {
	app         LikesService
	guard       middleware.Guard
	maxPageSize int
}

func NewLikesAPI(app LikesService, guard middleware.Guard, maxPageSize int) *LikesAPI {
	return &LikesAPI{app: app, guard: guard, maxPageSize: maxPageSize}
}

func (a *LikesAPI) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/likes/{username}", a.guard.ProtectFunc(a.AddLike))
	mux.Handle("GET /api/likes", a.guard.ProtectFunc(a.GetUserLikes))
}

func (a *LikesAPI) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

func (a *LikesAPI) AddLike(w http.ResponseWriter, r *http.Request) {
	var username string
	if err := params.Path(r, "username", &username); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	p, _ := auth.FromContext(r.Context())
	if _, err := a.app.AddLike(r.Context(), p.Username, username); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetUserLikes lists who the caller liked (predicate=liked) or who liked the
// caller (predicate=likedBy).
func (a *LikesAPI) GetUserLikes(w http.ResponseWriter, r *http.Request) {
	page, err := params.Paging(r, a.maxPageSize)
	if err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	var predicate string
	if err := params.Query(r, "predicate", true, &predicate); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}

	p, _ := auth.FromContext(r.Context())
	list, err := a.app.GetUserLikes(r.Context(), domain.LikesParams{
		UserID:    p.MemberID,
		Predicate: domain.Predicate(predicate),
		Paging:    page,
	})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	paging.WriteHeader(w, list)
	serde.WriteJSON(w, http.StatusOK, paging.Map(list, LikedMemberDTO).Items)
}

func LikedMemberDTO(m domain.LikedMember) dto.LikedMember {
	return dto.LikedMember{
		ID:       m.ID,
		Username: m.Username,
		Age:      m.Age,
		KnownAs:  m.KnownAs,
		PhotoURL: m.PhotoURL,
		City:     m.City,
	}
}

func ProblemFromDomainError(r *http.Request, err error) *problem.Problem {
	at := problem.WithInstance(r.URL.Path)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrLikeNotFound):
		return problem.NotFound(err.Error(), at)
	case errors.Is(err, domain.ErrSelfLike), errors.Is(err, domain.ErrAlreadyLiked):
		return problem.BadRequest(err.Error(), at)
	case errors.Is(err, domain.ErrBadPredicate):
		return problem.BadRequest(err.Error(), problem.WithInvalidParam("predicate", "must be liked or likedBy"), at)
	case errors.Is(err, domain.ErrInvalidData):
		return problem.BadRequest("invalid request", at)
	default:
		return problem.Internal("server error", at)
	}
}

package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"datingapp/core/account/domain"
	likesrest "datingapp/core/likes/adapters/rest"
	memberrest "datingapp/core/member/adapters/rest"
	messagesrest "datingapp/core/messages/adapters/rest"
	"datingapp/modules/api/dto"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/middleware/problem"
)

type AccountService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.UserToken, error)
	Login(ctx context.Context, username, password string) (*domain.UserToken, error)
	ExportGraph(ctx context.Context, lookup domain.GraphLookup) (*domain.Graph, error)
}

var _ AccountService = (*domain.Application)(nil)

// AccountAPI serves /api/account.
type AccountAPI struct {
	app   AccountService
	guard middleware.Guard
}

func NewAccountAPI(app AccountService, guard middleware.Guard) *AccountAPI {
	return &AccountAPI{app: app, guard: guard}
}

func (a *AccountAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/account/register", a.RegisterMember)
	mux.HandleFunc("POST /api/account/login", a.Login)
	mux.Handle("GET /api/account/export", a.guard.ProtectFunc(a.ExportGraph))
}

func (a *AccountAPI) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

func (a *AccountAPI) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var body dto.RegisterRequest
	if err := serde.DecodeValid(w, r, &body); err != nil {
		problem.Write(w, params.BodyProblem(r, err))
		return
	}
	dob, err := time.Parse(time.DateOnly, body.DateOfBirth)
	if err != nil {
		problem.Write(w, problem.UnprocessableEntity("validation failed",
			problem.WithInvalidParam("dateOfBirth", "must be a date"),
			problem.WithInstance(r.URL.Path),
		))
		return
	}

	tok, err := a.app.Register(r.Context(), domain.Registration{
		Username:    body.Username,
		Password:    body.Password,
		KnownAs:     body.KnownAs,
		Gender:      body.Gender,
		DateOfBirth: dob,
		City:        body.City,
		Country:     body.Country,
	})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	serde.WriteJSON(w, http.StatusOK, UserTokenDTO(*tok))
}

func (a *AccountAPI) Login(w http.ResponseWriter, r *http.Request) {
	var body dto.LoginRequest
	if err := serde.DecodeValid(w, r, &body); err != nil {
		problem.Write(w, params.BodyProblem(r, err))
		return
	}
	tok, err := a.app.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	serde.WriteJSON(w, http.StatusOK, UserTokenDTO(*tok))
}

// ExportGraph returns the caller's whole graph.
func (a *AccountAPI) ExportGraph(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	g, err := a.app.ExportGraph(r.Context(), domain.GraphLookup{ID: p.MemberID})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	serde.WriteJSON(w, http.StatusOK, GraphDTO(g))
}

func UserTokenDTO(t domain.UserToken) dto.UserToken {
	return dto.UserToken{
		Username: t.Username,
		KnownAs:  t.KnownAs,
		Gender:   t.Gender,
		PhotoURL: t.PhotoURL,
		Token:    t.Token,
	}
}

func GraphDTO(g *domain.Graph) dto.MemberGraph {
	out := dto.MemberGraph{
		Member:           memberrest.MemberDTO(g.Member),
		Photos:           memberrest.PhotoDTOs(g.Photos),
		LikedBy:          make([]dto.LikedMember, len(g.LikedBy)),
		Liked:            make([]dto.LikedMember, len(g.Liked)),
		MessagesReceived: make([]dto.Message, len(g.MessagesReceived)),
		MessagesSent:     make([]dto.Message, len(g.MessagesSent)),
	}
	for i, m := range g.LikedBy {
		out.LikedBy[i] = likesrest.LikedMemberDTO(m)
	}
	for i, m := range g.Liked {
		out.Liked[i] = likesrest.LikedMemberDTO(m)
	}
	for i, m := range g.MessagesReceived {
		out.MessagesReceived[i] = messagesrest.MessageDTO(m)
	}
	for i, m := range g.MessagesSent {
		out.MessagesSent[i] = messagesrest.MessageDTO(m)
	}
	return out
}

func ProblemFromDomainError(r *http.Request, err error) *problem.Problem {
	at := problem.WithInstance(r.URL.Path)
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return problem.Conflict(err.Error(), at)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return problem.Unauthorized(err.Error(), at)
	case errors.Is(err, domain.ErrMemberNotFound):
		return problem.NotFound(err.Error(), at)
	case errors.Is(err, domain.ErrInvalidData):
		return problem.BadRequest("invalid registration", at)
	default:
		return problem.Internal("server error", at)
	}
}

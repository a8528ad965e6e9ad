package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"datingapp/core/messages/domain"
	"datingapp/modules/api/dto"
	"datingapp/modules/api/params"
	"datingapp/modules/api/serde"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/middleware/problem"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

const (
	// NextCursorHeader carries the cursor of the next, older thread page.
	NextCursorHeader = "X-Next-Cursor"
	// RecipientOnlineHeader tells whether the other member has the thread open.
	RecipientOnlineHeader = "X-Recipient-Online"
)

type MessageService interface {
	CreateMessage(ctx context.Context, senderUsername, recipientUsername, content string) (*domain.Message, error)
	GetMessagesForUser(ctx context.Context, params domain.MessageParams) (paging.PagedList[domain.Message], error)
	GetMessageThread(ctx context.Context, params domain.ThreadParams) (*domain.ThreadPage, error)
	DeleteMessage(ctx context.Context, username string, id uuid.UUID) error
	JoinThread(ctx context.Context, currentUsername, otherUsername string) (*domain.Connection, error)
	LeaveThread(ctx context.Context, currentUsername, connectionID string) error
}

var _ MessageService = (*domain.Application)(nil)

// MessagesAPI serves /api/messages.
type MessagesAPI struct {
	app         MessageService
	guard       middleware.Guard
	maxPageSize int
}

func NewMessagesAPI(app MessageService, guard middleware.Guard, maxPageSize int) *MessagesAPI {
	return &MessagesAPI{app: app, guard: guard, maxPageSize: maxPageSize}
}

func (a *MessagesAPI) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/messages", a.guard.ProtectFunc(a.CreateMessage))
	mux.Handle("GET /api/messages", a.guard.ProtectFunc(a.GetMessagesForUser))
	mux.Handle("GET /api/messages/thread/{username}", a.guard.ProtectFunc(a.GetMessageThread))
	mux.Handle("DELETE /api/messages/{id}", a.guard.ProtectFunc(a.DeleteMessage))
	mux.Handle("POST /api/messages/thread/{username}/connections", a.guard.ProtectFunc(a.JoinThread))
	mux.Handle("DELETE /api/messages/connections/{id}", a.guard.ProtectFunc(a.LeaveThread))
}

func (a *MessagesAPI) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

func (a *MessagesAPI) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var body dto.CreateMessage
	if err := serde.DecodeValid(w, r, &body); err != nil {
		problem.Write(w, params.BodyProblem(r, err))
		return
	}

	p, _ := auth.FromContext(r.Context())
	msg, err := a.app.CreateMessage(r.Context(), p.Username, body.RecipientUsername, body.Content)
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	serde.WriteJSON(w, http.StatusOK, MessageDTO(*msg))
}

func (a *MessagesAPI) GetMessagesForUser(w http.ResponseWriter, r *http.Request) {
	page, err := params.Paging(r, a.maxPageSize)
	if err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	container := string(domain.ContainerUnread)
	if err := params.Query(r, "container", false, &container); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}

	p, _ := auth.FromContext(r.Context())
	list, err := a.app.GetMessagesForUser(r.Context(), domain.MessageParams{
		Username:  p.Username,
		Container: domain.Container(container),
		Paging:    page,
	})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	paging.WriteHeader(w, list)
	serde.WriteJSON(w, http.StatusOK, paging.Map(list, MessageDTO).Items)
}

// GetMessageThread returns the conversation with {username}, oldest first.
// With limit set, X-Next-Cursor continues with older messages.
func (a *MessagesAPI) GetMessageThread(w http.ResponseWriter, r *http.Request) {
	var username, before string
	var limit int
	if err := params.Path(r, "username", &username); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	if err := params.Query(r, "limit", false, &limit); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	if err := params.Query(r, "before", false, &before); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}

	p, _ := auth.FromContext(r.Context())
	page, err := a.app.GetMessageThread(r.Context(), domain.ThreadParams{
		CurrentUsername:   p.Username,
		RecipientUsername: username,
		Limit:             limit,
		Before:            before,
	})
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}

	w.Header().Set(RecipientOnlineHeader, strconv.FormatBool(page.RecipientOnline))
	w.Header().Add("Access-Control-Expose-Headers", RecipientOnlineHeader)
	if page.NextCursor != "" {
		w.Header().Set(NextCursorHeader, page.NextCursor)
		w.Header().Add("Access-Control-Expose-Headers", NextCursorHeader)
	}
	out := make([]dto.Message, len(page.Messages))
	for i, m := range page.Messages {
		out[i] = MessageDTO(m)
	}
	serde.WriteJSON(w, http.StatusOK, out)
}

func (a *MessagesAPI) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	var id uuid.UUID
	if err := params.Path(r, "id", &id); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	p, _ := auth.FromContext(r.Context())
	if err := a.app.DeleteMessage(r.Context(), p.Username, id); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// JoinThread opens a connection on the thread with {username}. Messages sent
// to the caller while it is open arrive read.
func (a *MessagesAPI) JoinThread(w http.ResponseWriter, r *http.Request) {
	var username string
	if err := params.Path(r, "username", &username); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	p, _ := auth.FromContext(r.Context())
	conn, err := a.app.JoinThread(r.Context(), p.Username, username)
	if err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	serde.WriteJSON(w, http.StatusCreated, dto.ThreadConnection{ID: conn.ID, Group: conn.Group})
}

func (a *MessagesAPI) LeaveThread(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := params.Path(r, "id", &id); err != nil {
		problem.Write(w, params.Problem(r, err))
		return
	}
	p, _ := auth.FromContext(r.Context())
	if err := a.app.LeaveThread(r.Context(), p.Username, id); err != nil {
		problem.Write(w, ProblemFromDomainError(r, err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func MessageDTO(m domain.Message) dto.Message {
	return dto.Message{
		ID:                m.ID,
		SenderID:          m.SenderID,
		SenderUsername:    m.SenderUsername,
		SenderPhotoURL:    m.SenderPhotoURL,
		RecipientID:       m.RecipientID,
		RecipientUsername: m.RecipientUsername,
		RecipientPhotoURL: m.RecipientPhotoURL,
		Content:           m.Content,
		DateRead:          m.DateRead,
		MessageSent:       m.MessageSent,
		SenderDeleted:     m.SenderDeleted,
		RecipientDeleted:  m.RecipientDeleted,
	}
}

func ProblemFromDomainError(r *http.Request, err error) *problem.Problem {
	at := problem.WithInstance(r.URL.Path)
	switch {
	case errors.Is(err, domain.ErrMessageNotFound), errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrConnectionGone):
		return problem.NotFound(err.Error(), at)
	case errors.Is(err, domain.ErrNotParticipant):
		return problem.Unauthorized(err.Error(), at)
	case errors.Is(err, domain.ErrSelfMessage):
		return problem.BadRequest(err.Error(), at)
	case errors.Is(err, domain.ErrBadContainer):
		return problem.BadRequest(err.Error(), problem.WithInvalidParam("container", "must be Inbox, Outbox or Unread"), at)
	case errors.Is(err, domain.ErrInvalidCursor):
		return problem.BadRequest(err.Error(), problem.WithInvalidParam("before", "invalid or expired cursor"), at)
	case errors.Is(err, domain.ErrInvalidData):
		return problem.BadRequest("invalid request", at)
	default:
		return problem.Internal("server error", at)
	}
}

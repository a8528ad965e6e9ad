package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"datingapp/core/messages/domain"
	"datingapp/modules/api/dto"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct{ mock.Mock }

func (m *mockService) CreateMessage(ctx context.Context, sender, recipient, content string) (*domain.Message, error) {
	args := m.Called(ctx, sender, recipient, content)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

func (m *mockService) GetMessagesForUser(ctx context.Context, p domain.MessageParams) (paging.PagedList[domain.Message], error) {
	args := m.Called(ctx, p)
	return args.Get(0).(paging.PagedList[domain.Message]), args.Error(1)
}

func (m *mockService) GetMessageThread(ctx context.Context, p domain.ThreadParams) (*domain.ThreadPage, error) {
	args := m.Called(ctx, p)
	page, _ := args.Get(0).(*domain.ThreadPage)
	return page, args.Error(1)
}

func (m *mockService) DeleteMessage(ctx context.Context, username string, id uuid.UUID) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *mockService) JoinThread(ctx context.Context, current, other string) (*domain.Connection, error) {
	args := m.Called(ctx, current, other)
	conn, _ := args.Get(0).(*domain.Connection)
	return conn, args.Error(1)
}

func (m *mockService) LeaveThread(ctx context.Context, current, id string) error {
	return m.Called(ctx, current, id).Error(0)
}

type verifier struct{ p auth.Principal }

func (v verifier) Verify(string) (auth.Principal, error) { return v.p, nil }

var (
	lisa = auth.Principal{MemberID: uuid.Must(uuid.NewV7()), Username: "lisa"}
	sent = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
)

func serve(svc MessageService, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	NewMessagesAPI(svc, middleware.Guard{Verifier: verifier{p: lisa}}, 50).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateMessage(t *testing.T) {
	svc := &mockService{}
	msg := &domain.Message{ID: uuid.Must(uuid.NewV7()), SenderUsername: "lisa", RecipientUsername: "todd", Content: "hi", MessageSent: sent}
	svc.On("CreateMessage", mock.Anything, "lisa", "todd", "hi").Return(msg, nil).Once()
	svc.On("CreateMessage", mock.Anything, "lisa", "lisa", "hi").Return(nil, domain.ErrSelfMessage).Once()

	rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"recipientUsername":"todd","content":"hi"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var body dto.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msg.ID, body.ID)
	assert.Nil(t, body.DateRead)

	rec = serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"recipientUsername":"lisa","content":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "you cannot send messages to yourself")

	rec = serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"recipientUsername":"todd","content":""}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetMessagesForUser(t *testing.T) {
	svc := &mockService{}
	want := domain.MessageParams{Username: "lisa", Container: domain.ContainerInbox, Paging: paging.Params{PageNumber: 1, PageSize: 10}}
	page := paging.NewPagedList([]domain.Message{{ID: uuid.Must(uuid.NewV7()), Content: "hi"}}, 1, want.Paging)
	svc.On("GetMessagesForUser", mock.Anything, want).Return(page, nil).Once()

	unread := domain.MessageParams{Username: "lisa", Container: domain.ContainerUnread, Paging: paging.NewParams(0, 0, 50)}
	svc.On("GetMessagesForUser", mock.Anything, unread).Return(paging.NewPagedList[domain.Message](nil, 0, unread.Paging), nil).Once()

	bad := domain.MessageParams{Username: "lisa", Container: "Trash", Paging: paging.NewParams(0, 0, 50)}
	svc.On("GetMessagesForUser", mock.Anything, bad).Return(paging.PagedList[domain.Message]{}, domain.ErrBadContainer).Once()

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages?container=Inbox&pageSize=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(paging.HeaderName))

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages?container=Trash", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetMessageThread(t *testing.T) {
	svc := &mockService{}
	first := domain.ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd", Limit: 2}
	svc.On("GetMessageThread", mock.Anything, first).Return(&domain.ThreadPage{
		Messages:        []domain.Message{{Content: "1"}, {Content: "2"}},
		NextCursor:      "cursor-1",
		RecipientOnline: true,
	}, nil).Once()
	expired := domain.ThreadParams{CurrentUsername: "lisa", RecipientUsername: "todd", Limit: 2, Before: "stale"}
	svc.On("GetMessageThread", mock.Anything, expired).Return(nil, domain.ErrInvalidCursor).Once()

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages/thread/todd?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cursor-1", rec.Header().Get(NextCursorHeader))
	assert.Equal(t, "true", rec.Header().Get(RecipientOnlineHeader))
	var body []dto.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "1", body[0].Content)

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages/thread/todd?limit=2&before=stale", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/api/messages/thread/todd?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteMessage(t *testing.T) {
	svc := &mockService{}
	id := uuid.Must(uuid.NewV7())
	other := uuid.Must(uuid.NewV7())
	svc.On("DeleteMessage", mock.Anything, "lisa", id).Return(nil).Once()
	svc.On("DeleteMessage", mock.Anything, "lisa", other).Return(domain.ErrNotParticipant).Once()

	assert.Equal(t, http.StatusOK, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/"+id.String(), nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/"+other.String(), nil)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/not-a-uuid", nil)).Code)
	svc.AssertExpectations(t)
}

func TestJoinAndLeaveThread(t *testing.T) {
	svc := &mockService{}
	conn := &domain.Connection{ID: "c1", Username: "lisa", Group: "lisa-todd"}
	svc.On("JoinThread", mock.Anything, "lisa", "todd").Return(conn, nil).Once()
	svc.On("JoinThread", mock.Anything, "lisa", "bob").Return(nil, domain.ErrMemberNotFound).Once()
	svc.On("LeaveThread", mock.Anything, "lisa", "c1").Return(nil).Once()
	svc.On("LeaveThread", mock.Anything, "lisa", "gone").Return(domain.ErrConnectionGone).Once()
	svc.On("LeaveThread", mock.Anything, "lisa", "theirs").Return(domain.ErrNotParticipant).Once()

	rec := serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages/thread/todd/connections", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"c1","group":"lisa-todd"}`, rec.Body.String())

	rec = serve(svc, httptest.NewRequest(http.MethodPost, "/api/messages/thread/bob/connections", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusOK, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/connections/c1", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/connections/gone", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(svc, httptest.NewRequest(http.MethodDelete, "/api/messages/connections/theirs", nil)).Code)
	svc.AssertExpectations(t)
}

func TestMessageDTO_DeletionFlags(t *testing.T) {
	msg := domain.Message{ID: uuid.Must(uuid.NewV7()), SenderDeleted: true, MessageSent: sent}
	out := MessageDTO(msg)
	assert.True(t, out.SenderDeleted)
	assert.False(t, out.RecipientDeleted)

	bs, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `"senderDeleted":true`)
	assert.Contains(t, string(bs), `"recipientDeleted":false`)
}

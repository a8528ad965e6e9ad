package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"datingapp/core/member/domain"
	"datingapp/modules/api/dto"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	members map[string]domain.Member

	lastParams domain.MemberParams
	lastUpdate domain.UpdateMemberParams
	lastPatch  domain.MemberPatch
	uploaded   string

	err error
}

func (f *fakeService) GetMembers(_ context.Context, p domain.MemberParams) (paging.PagedList[domain.Member], error) {
	f.lastParams = p
	if f.err != nil {
		return paging.PagedList[domain.Member]{}, f.err
	}
	var items []domain.Member
	for _, m := range f.members {
		if m.Username != p.CurrentUsername {
			items = append(items, m)
		}
	}
	return paging.NewPagedList(items, len(items), p.Paging), nil
}

func (f *fakeService) GetMember(_ context.Context, username string, _ bool) (*domain.Member, error) {
	m, ok := f.members[strings.ToLower(username)]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &m, nil
}

func (f *fakeService) UpdateMember(_ context.Context, p domain.UpdateMemberParams) (*domain.Member, error) {
	f.lastUpdate = p
	if f.err != nil {
		return nil, f.err
	}
	m := f.members[p.Username]
	m.Version++
	return &m, nil
}

func (f *fakeService) ModifyMember(_ context.Context, p domain.MemberPatch) (*domain.Member, error) {
	f.lastPatch = p
	m := f.members[p.Username]
	m.Version++
	return &m, nil
}

func (f *fakeService) AddPhoto(_ context.Context, _, _, contentType string, r io.Reader) (*domain.Photo, error) {
	if contentType != "image/png" {
		return nil, domain.ErrUnsupportedImage
	}
	bs, _ := io.ReadAll(r)
	f.uploaded = string(bs)
	return &domain.Photo{ID: uuid.Must(uuid.NewV7()), URL: "/images/x.png", IsMain: true}, nil
}

func (f *fakeService) SetMainPhoto(context.Context, string, uuid.UUID) error { return f.err }
func (f *fakeService) DeletePhoto(context.Context, string, uuid.UUID) error  { return f.err }

func (f *fakeService) GetUnapprovedPhotos(context.Context) ([]domain.PhotoForApproval, error) {
	return []domain.PhotoForApproval{{ID: uuid.Must(uuid.NewV7()), URL: "/images/a.png", Username: "todd"}}, nil
}

func (f *fakeService) ApprovePhoto(context.Context, uuid.UUID) error { return f.err }
func (f *fakeService) RejectPhoto(context.Context, uuid.UUID) error  { return f.err }

type staticVerifier struct{ p auth.Principal }

func (s staticVerifier) Verify(raw string) (auth.Principal, error) {
	if raw == "" {
		return auth.Principal{}, auth.ErrMissingToken
	}
	return s.p, nil
}

func newMux(t *testing.T, svc *fakeService, roles ...string) *http.ServeMux {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{auth.RoleMember}
	}
	guard := middleware.Guard{Verifier: staticVerifier{p: auth.Principal{
		MemberID: uuid.Must(uuid.NewV7()),
		Username: "lisa",
		Roles:    roles,
	}}}
	mux := http.NewServeMux()
	NewMemberAPI(svc, guard, WithMaxPageSize(50)).Register(mux)
	return mux
}

func do(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func seeded() *fakeService {
	return &fakeService{members: map[string]domain.Member{
		"lisa": {ID: uuid.Must(uuid.NewV7()), Username: "lisa", Gender: domain.Female, Version: 3},
		"todd": {ID: uuid.Must(uuid.NewV7()), Username: "todd", Gender: domain.Male, Version: 1, Created: time.Now()},
	}}
}

func TestListMembers(t *testing.T) {
	svc := seeded()
	mux := newMux(t, svc)

	rec := do(mux, httptest.NewRequest(http.MethodGet, "/api/users?pageSize=5&minAge=20&orderBy=created", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "lisa", svc.lastParams.CurrentUsername)
	assert.Equal(t, 20, svc.lastParams.MinAge)
	assert.Equal(t, domain.DefaultMaxAge, svc.lastParams.MaxAge)
	assert.Equal(t, domain.OrderByCreated, svc.lastParams.OrderBy)
	assert.Equal(t, 5, svc.lastParams.Paging.PageSize)

	var hdr paging.Header
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get(paging.HeaderName)), &hdr))
	assert.Equal(t, 1, hdr.TotalItems)

	var body []dto.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "todd", body[0].Username)
}

func TestListMembers_BadQuery(t *testing.T) {
	rec := do(newMux(t, seeded()), httptest.NewRequest(http.MethodGet, "/api/users?minAge=old", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMembers_RequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newMux(t, seeded()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMember_ETag(t *testing.T) {
	mux := newMux(t, seeded())

	rec := do(mux, httptest.NewRequest(http.MethodGet, "/api/users/todd", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"v:1"`, rec.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/api/users/todd", nil)
	req.Header.Set("If-None-Match", `"v:1"`)
	rec = do(mux, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/users/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMember(t *testing.T) {
	svc := seeded()
	mux := newMux(t, svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(`{"introduction":"hi","city":"Oslo"}`))
	req.Header.Set("If-Match", `"v:3"`)
	rec := do(mux, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, `"v:4"`, rec.Header().Get("ETag"))
	assert.Equal(t, int64(3), svc.lastUpdate.Version)
	assert.Equal(t, "Oslo", svc.lastUpdate.Fields.City)
}

func TestUpdateMember_PreconditionReturnsCurrentETag(t *testing.T) {
	svc := seeded()
	svc.err = domain.ErrPrecondition
	mux := newMux(t, svc)

	req := httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(`{}`))
	req.Header.Set("If-Match", `"v:1"`)
	rec := do(mux, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, `"v:3"`, rec.Header().Get("ETag"))
}

func TestUpdateMember_BadIfMatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(`{}`))
	req.Header.Set("If-Match", "three")
	rec := do(newMux(t, seeded()), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModifyMember_TriState(t *testing.T) {
	svc := seeded()
	mux := newMux(t, svc)

	rec := do(mux, httptest.NewRequest(http.MethodPatch, "/api/users", strings.NewReader(`{"city":"Bergen","interests":null}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, domain.PatchField{Set: true, Value: "Bergen"}, svc.lastPatch.City)
	assert.Equal(t, domain.PatchField{Set: true, Null: true}, svc.lastPatch.Interests)
	assert.False(t, svc.lastPatch.Introduction.Set)

	rec = do(mux, httptest.NewRequest(http.MethodPatch, "/api/users", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

const pngMagic = "\x89PNG\r\n\x1a\n"

func multipartBody(t *testing.T, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAddPhoto(t *testing.T) {
	svc := seeded()
	mux := newMux(t, svc)

	png := pngMagic + "png-bytes"
	body, ct := multipartBody(t, "application/octet-stream", png)
	req := httptest.NewRequest(http.MethodPost, "/api/users/add-photo", body)
	req.Header.Set("Content-Type", ct)
	rec := do(mux, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/users/lisa", rec.Header().Get("Location"))
	assert.Equal(t, png, svc.uploaded, "sniffed bytes are replayed")

	body, ct = multipartBody(t, "text/plain", "nope")
	req = httptest.NewRequest(http.MethodPost, "/api/users/add-photo", body)
	req.Header.Set("Content-Type", ct)
	rec = do(mux, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, httptest.NewRequest(http.MethodPost, "/api/users/add-photo", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddPhoto_IgnoresDeclaredType(t *testing.T) {
	svc := seeded()
	mux := newMux(t, svc)

	body, ct := multipartBody(t, "image/png", "<html><script>alert(1)</script></html>")
	req := httptest.NewRequest(http.MethodPost, "/api/users/add-photo", body)
	req.Header.Set("Content-Type", ct)
	rec := do(mux, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.uploaded)
}

func TestSniffContentType(t *testing.T) {
	long := pngMagic + strings.Repeat("x", 2048)
	ct, r, err := sniffContentType(strings.NewReader(long))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	bs, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, long, string(bs))

	ct, r, err = sniffContentType(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", ct)
	bs, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, bs)
}

func TestPhotoErrors(t *testing.T) {
	id := uuid.Must(uuid.NewV7()).String()
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusNoContent},
		{domain.ErrPhotoNotFound, http.StatusNotFound},
		{domain.ErrAlreadyMain, http.StatusBadRequest},
		{domain.ErrUnhandled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := seeded()
		svc.err = tc.err
		rec := do(newMux(t, svc), httptest.NewRequest(http.MethodPut, "/api/users/set-main-photo/"+id, nil))
		assert.Equal(t, tc.status, rec.Code, "%v", tc.err)
	}

	svc := seeded()
	svc.err = domain.ErrPhotoIsMain
	rec := do(newMux(t, svc), httptest.NewRequest(http.MethodDelete, "/api/users/delete-photo/"+id, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(newMux(t, seeded()), httptest.NewRequest(http.MethodDelete, "/api/users/delete-photo/42", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes_RequireModerator(t *testing.T) {
	rec := do(newMux(t, seeded()), httptest.NewRequest(http.MethodGet, "/api/admin/photos-to-moderate", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mux := newMux(t, seeded(), auth.RoleMember, auth.RoleModerator)
	rec = do(mux, httptest.NewRequest(http.MethodGet, "/api/admin/photos-to-moderate", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body []dto.PhotoForApproval
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "todd", body[0].Username)

	rec = do(mux, httptest.NewRequest(http.MethodPost, "/api/admin/approve-photo/"+uuid.Must(uuid.NewV7()).String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

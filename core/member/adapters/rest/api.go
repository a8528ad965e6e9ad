package rest

import (
	"context"
	"io"
	"net/http"

	"datingapp/core/member/domain"
	"datingapp/modules/auth"
	"datingapp/modules/middleware"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

// MemberService is the part of domain.Application the HTTP layer drives.
type MemberService interface {
	GetMembers(ctx context.Context, params domain.MemberParams) (paging.PagedList[domain.Member], error)
	GetMember(ctx context.Context, username string, isCurrentUser bool) (*domain.Member, error)
	UpdateMember(ctx context.Context, params domain.UpdateMemberParams) (*domain.Member, error)
	ModifyMember(ctx context.Context, patch domain.MemberPatch) (*domain.Member, error)

	AddPhoto(ctx context.Context, username, fileName, contentType string, r io.Reader) (*domain.Photo, error)
	SetMainPhoto(ctx context.Context, username string, photoID uuid.UUID) error
	DeletePhoto(ctx context.Context, username string, photoID uuid.UUID) error

	GetUnapprovedPhotos(ctx context.Context) ([]domain.PhotoForApproval, error)
	ApprovePhoto(ctx context.Context, photoID uuid.UUID) error
	RejectPhoto(ctx context.Context, photoID uuid.UUID) error
}

var _ MemberService = (*domain.Application)(nil)

// MemberAPI serves /api/users and /api/admin.
type MemberAPI struct {
	app   MemberService
	guard middleware.Guard

	maxPageSize    int
	maxUploadBytes int64
}

type Option func(*MemberAPI)

func WithMaxPageSize(n int) Option {
	return func(a *MemberAPI) { a.maxPageSize = n }
}

func WithMaxUploadBytes(n int64) Option {
	return func(a *MemberAPI) {
		if n > 0 {
			a.maxUploadBytes = n
		}
	}
}

func NewMemberAPI(app MemberService, guard middleware.Guard, opts ...Option) *MemberAPI {
	a := &MemberAPI{
		app:            app,
		guard:          guard,
		maxPageSize:    paging.MaxPageSize,
		maxUploadBytes: 10 << 20,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

func (a *MemberAPI) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/users", a.guard.ProtectFunc(a.ListMembers))
	mux.Handle("GET /api/users/{username}", a.guard.ProtectFunc(a.GetMember))
	mux.Handle("PUT /api/users", a.guard.ProtectFunc(a.UpdateMember))
	mux.Handle("PATCH /api/users", a.guard.ProtectFunc(a.ModifyMember))
	mux.Handle("POST /api/users/add-photo", a.guard.ProtectFunc(a.AddPhoto))
	mux.Handle("PUT /api/users/set-main-photo/{photoId}", a.guard.ProtectFunc(a.SetMainPhoto))
	mux.Handle("DELETE /api/users/delete-photo/{photoId}", a.guard.ProtectFunc(a.DeletePhoto))

	moderators := []string{auth.RoleAdmin, auth.RoleModerator}
	mux.Handle("GET /api/admin/photos-to-moderate", a.guard.ProtectFunc(a.PhotosToModerate, moderators...))
	mux.Handle("POST /api/admin/approve-photo/{photoId}", a.guard.ProtectFunc(a.ApprovePhoto, moderators...))
	mux.Handle("POST /api/admin/reject-photo/{photoId}", a.guard.ProtectFunc(a.RejectPhoto, moderators...))
}

func (a *MemberAPI) Middlewares() []func(http.Handler) http.Handler {
	return nil
}

// caller is only called behind Guard, which guarantees a principal.
func caller(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

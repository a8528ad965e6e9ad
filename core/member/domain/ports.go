package domain

import (
	"context"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
)

// MemberReadStore serves lookups from a replica.
type MemberReadStore interface {
	// GetMembers returns one page and the total matching q.
	GetMembers(ctx context.Context, q MemberQuery) ([]Member, int, error)

	// GetMemberByUsername loads the member with photos and roles. Unapproved
	// photos are included only when withUnapproved is set.
	GetMemberByUsername(ctx context.Context, username string, withUnapproved bool) (*Member, error)

	GetMemberGender(ctx context.Context, username string) (Gender, error)
	GetPhotoByID(ctx context.Context, id uuid.UUID) (*Photo, error)
	GetUnapprovedPhotos(ctx context.Context) ([]PhotoForApproval, error)
}

// MemberWriteStore runs on the primary. Photo changes always go through
// WithTx so the main-photo invariant holds.
type MemberWriteStore interface {
	UpdateMember(ctx context.Context, params *UpdateMemberParams) (*Member, error)
	// ModifyMember is not prepared since its SET clause depends on the patch.
	ModifyMember(ctx context.Context, patch *MemberPatch) (*Member, error)
	// TouchLastActive returns the member's username.
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) (string, error)

	WithTx(ctx context.Context, fn func(ctx context.Context, tx MemberWriteTx) error) error
	WithTimeoutTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx MemberWriteTx) error) error
}

// MemberWriteTx is bound to one transaction and must not leave it.
type MemberWriteTx interface {
	// LockMemberByUsername locks the member row and bumps its version.
	LockMemberByUsername(ctx context.Context, username string) (uuid.UUID, error)
	// LockMemberByID is LockMemberByUsername keyed by id; it returns the username.
	LockMemberByID(ctx context.Context, id uuid.UUID) (string, error)

	// GetPhoto reads without locking; lock the owner before GetPhotoForUpdate
	// so every transaction takes member then photo locks.
	GetPhoto(ctx context.Context, id uuid.UUID) (*Photo, error)
	GetPhotoForUpdate(ctx context.Context, id uuid.UUID) (*Photo, error)
	// GetMainPhoto returns nil, nil when the member has no main photo.
	GetMainPhoto(ctx context.Context, memberID uuid.UUID) (*Photo, error)
	CountPhotos(ctx context.Context, memberID uuid.UUID) (int, error)

	InsertPhoto(ctx context.Context, p *NewPhoto) (*Photo, error)
	SetMain(ctx context.Context, photoID uuid.UUID, isMain bool) error
	SetApproved(ctx context.Context, photoID uuid.UUID) (*Photo, error)
	DeletePhoto(ctx context.Context, photoID uuid.UUID) error

	// EnqueueAssetDeletion records publicID for the purge job.
	EnqueueAssetDeletion(ctx context.Context, publicID string) error
}

// MemberCache holds member details by key. Get returns nil, nil on a miss.
type MemberCache interface {
	Get(ctx context.Context, key string) (*Member, error)
	Set(ctx context.Context, key string, m Member) error
	Invalidate(ctx context.Context, keys ...string) error
}

// ImageStore keeps photo files.
type ImageStore interface {
	// Save stores r and returns its public URL and the id Delete takes.
	Save(ctx context.Context, name, contentType string, r io.Reader) (url, publicID string, err error)
	// Delete removes the file; a missing file is not an error.
	Delete(ctx context.Context, publicID string) error
}

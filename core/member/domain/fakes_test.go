package domain

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
)

type fakeStore struct {
	mu        sync.Mutex
	members   map[string]*Member
	photos    map[uuid.UUID]*Photo
	deletions []string
	lastQuery MemberQuery
	reads     int

	insertErr error
}

func newFakeStore(members ...Member) *fakeStore {
	s := &fakeStore{members: map[string]*Member{}, photos: map[uuid.UUID]*Photo{}}
	for _, m := range members {
		m := m
		if m.ID.IsNil() {
			m.ID = uuid.Must(uuid.NewV7())
		}
		if m.Version == 0 {
			m.Version = 1
		}
		s.members[m.Username] = &m
	}
	return s
}

func (s *fakeStore) addPhoto(username string, main, approved bool) *Photo {
	m := s.members[username]
	p := &Photo{
		ID:         uuid.Must(uuid.NewV7()),
		MemberID:   m.ID,
		URL:        "http://img/" + username,
		PublicID:   uuid.Must(uuid.NewV4()).String() + ".jpg",
		IsMain:     main,
		IsApproved: approved,
	}
	s.photos[p.ID] = p
	return p
}

func (s *fakeStore) byID(id uuid.UUID) *Member {
	for _, m := range s.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *fakeStore) GetMembers(_ context.Context, q MemberQuery) ([]Member, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = q
	var out []Member
	for _, m := range s.members {
		if m.Username == q.ExcludeUsername || m.Gender != q.Gender {
			continue
		}
		if !m.DateOfBirth.After(q.DobAfter) || m.DateOfBirth.After(q.DobOnOrBefore) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	total := len(out)
	start := min(q.Paging.Offset(), total)
	end := min(start+q.Paging.Limit(), total)
	return out[start:end], total, nil
}

func (s *fakeStore) GetMemberByUsername(_ context.Context, username string, withUnapproved bool) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	m, ok := s.members[username]
	if !ok {
		return nil, ErrMemberNotFound
	}
	cp := *m
	cp.Photos = nil
	for _, p := range s.photos {
		if p.MemberID == m.ID && (withUnapproved || p.IsApproved) {
			cp.Photos = append(cp.Photos, *p)
		}
	}
	return &cp, nil
}

func (s *fakeStore) GetMemberGender(_ context.Context, username string) (Gender, error) {
	m, ok := s.members[username]
	if !ok {
		return "", ErrMemberNotFound
	}
	return m.Gender, nil
}

func (s *fakeStore) GetPhotoByID(_ context.Context, id uuid.UUID) (*Photo, error) {
	p, ok := s.photos[id]
	if !ok {
		return nil, ErrPhotoNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetUnapprovedPhotos(context.Context) ([]PhotoForApproval, error) {
	var out []PhotoForApproval
	for _, p := range s.photos {
		if !p.IsApproved {
			out = append(out, PhotoForApproval{ID: p.ID, URL: p.URL, Username: s.byID(p.MemberID).Username})
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateMember(_ context.Context, params *UpdateMemberParams) (*Member, error) {
	m, ok := s.members[params.Username]
	if !ok || (params.Version != 0 && params.Version != m.Version) {
		return nil, ErrMemberNotFound
	}
	m.Introduction = params.Fields.Introduction
	m.LookingFor = params.Fields.LookingFor
	m.Interests = params.Fields.Interests
	m.City = params.Fields.City
	m.Country = params.Fields.Country
	m.Version++
	cp := *m
	return &cp, nil
}

func (s *fakeStore) ModifyMember(_ context.Context, patch *MemberPatch) (*Member, error) {
	m, ok := s.members[patch.Username]
	if !ok || (patch.Version != 0 && patch.Version != m.Version) {
		return nil, ErrMemberNotFound
	}
	apply := func(dst *string, f PatchField) {
		switch {
		case !f.Set:
		case f.Null:
			*dst = ""
		default:
			*dst = f.Value
		}
	}
	apply(&m.Introduction, patch.Introduction)
	apply(&m.LookingFor, patch.LookingFor)
	apply(&m.Interests, patch.Interests)
	apply(&m.City, patch.City)
	apply(&m.Country, patch.Country)
	m.Version++
	cp := *m
	return &cp, nil
}

func (s *fakeStore) TouchLastActive(_ context.Context, id uuid.UUID, at time.Time) (string, error) {
	m := s.byID(id)
	if m == nil {
		return "", ErrMemberNotFound
	}
	m.LastActive = at
	return m.Username, nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx MemberWriteTx) error) error {
	return fn(ctx, s)
}

func (s *fakeStore) WithTimeoutTx(ctx context.Context, _ time.Duration, fn func(ctx context.Context, tx MemberWriteTx) error) error {
	return fn(ctx, s)
}

func (s *fakeStore) LockMemberByUsername(_ context.Context, username string) (uuid.UUID, error) {
	m, ok := s.members[username]
	if !ok {
		return uuid.Nil, ErrMemberNotFound
	}
	m.Version++
	return m.ID, nil
}

func (s *fakeStore) LockMemberByID(_ context.Context, id uuid.UUID) (string, error) {
	m := s.byID(id)
	if m == nil {
		return "", ErrMemberNotFound
	}
	m.Version++
	return m.Username, nil
}

func (s *fakeStore) GetPhoto(ctx context.Context, id uuid.UUID) (*Photo, error) {
	return s.GetPhotoByID(ctx, id)
}

func (s *fakeStore) GetPhotoForUpdate(ctx context.Context, id uuid.UUID) (*Photo, error) {
	return s.GetPhotoByID(ctx, id)
}

func (s *fakeStore) GetMainPhoto(_ context.Context, memberID uuid.UUID) (*Photo, error) {
	for _, p := range s.photos {
		if p.MemberID == memberID && p.IsMain {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CountPhotos(_ context.Context, memberID uuid.UUID) (int, error) {
	n := 0
	for _, p := range s.photos {
		if p.MemberID == memberID {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InsertPhoto(_ context.Context, np *NewPhoto) (*Photo, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	p := &Photo{ID: np.ID, MemberID: np.MemberID, URL: np.URL, PublicID: np.PublicID, IsMain: np.IsMain}
	s.photos[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SetMain(_ context.Context, photoID uuid.UUID, isMain bool) error {
	p, ok := s.photos[photoID]
	if !ok {
		return ErrPhotoNotFound
	}
	if isMain {
		if other, _ := s.GetMainPhoto(context.Background(), p.MemberID); other != nil && other.ID != p.ID {
			panic("two main photos")
		}
	}
	p.IsMain = isMain
	return nil
}

func (s *fakeStore) SetApproved(_ context.Context, photoID uuid.UUID) (*Photo, error) {
	p, ok := s.photos[photoID]
	if !ok {
		return nil, ErrPhotoNotFound
	}
	p.IsApproved = true
	cp := *p
	return &cp, nil
}

func (s *fakeStore) DeletePhoto(_ context.Context, photoID uuid.UUID) error {
	if _, ok := s.photos[photoID]; !ok {
		return ErrPhotoNotFound
	}
	delete(s.photos, photoID)
	return nil
}

func (s *fakeStore) EnqueueAssetDeletion(_ context.Context, publicID string) error {
	s.deletions = append(s.deletions, publicID)
	return nil
}

type fakeImages struct {
	saved   map[string]string
	deleted []string
}

func newFakeImages() *fakeImages { return &fakeImages{saved: map[string]string{}} }

func (f *fakeImages) Save(_ context.Context, _ string, contentType string, r io.Reader) (string, string, error) {
	bs, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}
	id := uuid.Must(uuid.NewV7()).String()
	f.saved[id] = string(bs)
	return "http://img/" + id, id, nil
}

func (f *fakeImages) Delete(_ context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	delete(f.saved, publicID)
	return nil
}

type mapCache struct {
	entries     map[string]Member
	invalidated []string
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]Member{}} }

func (c *mapCache) Get(_ context.Context, key string) (*Member, error) {
	m, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *mapCache) Set(_ context.Context, key string, m Member) error {
	c.entries[key] = m
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
		c.invalidated = append(c.invalidated, k)
	}
	return nil
}

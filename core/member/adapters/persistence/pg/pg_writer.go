// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"datingapp/core/member/domain"
	"datingapp/modules/db"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

var _ domain.MemberWriteStore = (*PostgresMemberWriter)(nil)

type (
	PostgresMemberWriter struct {
		db  *bob.DB
		txm db.TxManager

		updateStmt       bob.QueryStmt[updateMemberArgs, MemberRow, []MemberRow]
		touchStmt        bob.QueryStmt[touchArgs, string, []string]
		lockByNameStmt   bob.QueryStmt[usernameArgs, uuid.UUID, []uuid.UUID]
		lockByIDStmt     bob.QueryStmt[idArgs, string, []string]
		insertPhotoStmt  bob.QueryStmt[insertPhotoArgs, PhotoRow, []PhotoRow]
		setMainStmt      bob.QueryStmt[setMainArgs, uuid.UUID, []uuid.UUID]
		setApprovedStmt  bob.QueryStmt[idArgs, PhotoRow, []PhotoRow]
		deletePhotoStmt  bob.QueryStmt[idArgs, uuid.UUID, []uuid.UUID]
		enqueueAssetStmt bob.QueryStmt[enqueueArgs, string, []string]
	}

	updateMemberArgs struct {
		Username     string        `db:"username"`
		Version      sql.NullInt64 `db:"version_number"`
		Introduction string        `db:"introduction"`
		LookingFor   string        `db:"looking_for"`
		Interests    string        `db:"interests"`
		City         string        `db:"city"`
		Country      string        `db:"country"`
	}

	touchArgs struct {
		ID         uuid.UUID `db:"id"`
		LastActive time.Time `db:"last_active"`
	}

	usernameArgs struct {
		Username string `db:"username"`
	}

	idArgs struct {
		ID uuid.UUID `db:"id"`
	}

	insertPhotoArgs struct {
		ID       uuid.UUID      `db:"id"`
		MemberID uuid.UUID      `db:"member_id"`
		URL      string         `db:"url"`
		PublicID sql.NullString `db:"public_id"`
		IsMain   bool           `db:"is_main"`
	}

	setMainArgs struct {
		ID     uuid.UUID `db:"id"`
		IsMain bool      `db:"is_main"`
	}

	enqueueArgs struct {
		PublicID string `db:"public_id"`
	}
)

// optionalVersion matches any version when the named argument is NULL.
func optionalVersion() bob.Expression {
	return psql.Quote("version_number").EQ(psql.F("COALESCE", bob.Named("version_number"), psql.Quote("version_number")))
}

// NewPostgresMemberWriter prepares every fixed-shape write on the primary.
func NewPostgresMemberWriter(ctx context.Context, pool db.ConnectionPool) (*PostgresMemberWriter, error) {
	primary := pool.Writer().(bob.DB)
	w := &PostgresMemberWriter{db: &primary, txm: pool}

	var err error

	w.updateStmt, err = bob.PrepareQuery[updateMemberArgs](ctx, primary, psql.Update(
		um.Table(membersTable),
		um.SetCol("introduction").To(bob.Named("introduction")),
		um.SetCol("looking_for").To(bob.Named("looking_for")),
		um.SetCol("interests").To(bob.Named("interests")),
		um.SetCol("city").To(bob.Named("city")),
		um.SetCol("country").To(bob.Named("country")),
		um.SetCol("version_number").To(psql.Raw("version_number + 1")),
		um.Where(psql.Quote("username").EQ(bob.Named("username"))),
		um.Where(optionalVersion()),
		um.Returning(memberColumns...),
	), scan.StructMapper[MemberRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare update member: %w", err)
	}

	w.touchStmt, err = bob.PrepareQuery[touchArgs](ctx, primary, psql.Update(
		um.Table(membersTable),
		um.SetCol("last_active").To(bob.Named("last_active")),
		um.Where(psql.Quote("id").EQ(bob.Named("id"))),
		um.Returning("username"),
	), scan.SingleColumnMapper[string])
	if err != nil {
		return nil, fmt.Errorf("prepare touch member: %w", err)
	}

	// Locking a member bumps its version: photo changes alter the member's ETag.
	w.lockByNameStmt, err = bob.PrepareQuery[usernameArgs](ctx, primary, psql.Update(
		um.Table(membersTable),
		um.SetCol("version_number").To(psql.Raw("version_number + 1")),
		um.Where(psql.Quote("username").EQ(bob.Named("username"))),
		um.Returning("id"),
	), scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("prepare lock member by username: %w", err)
	}

	w.lockByIDStmt, err = bob.PrepareQuery[idArgs](ctx, primary, psql.Update(
		um.Table(membersTable),
		um.SetCol("version_number").To(psql.Raw("version_number + 1")),
		um.Where(psql.Quote("id").EQ(bob.Named("id"))),
		um.Returning("username"),
	), scan.SingleColumnMapper[string])
	if err != nil {
		return nil, fmt.Errorf("prepare lock member by id: %w", err)
	}

	w.insertPhotoStmt, err = bob.PrepareQuery[insertPhotoArgs](ctx, primary, psql.Insert(
		im.Into(photosTable, "id", "member_id", "url", "public_id", "is_main"),
		im.Values(
			bob.Named("id"),
			bob.Named("member_id"),
			bob.Named("url"),
			bob.Named("public_id"),
			bob.Named("is_main"),
		),
		im.Returning(photoColumns...),
	), scan.StructMapper[PhotoRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare insert photo: %w", err)
	}

	w.setMainStmt, err = bob.PrepareQuery[setMainArgs](ctx, primary, psql.Update(
		um.Table(photosTable),
		um.SetCol("is_main").To(bob.Named("is_main")),
		um.Where(psql.Quote("id").EQ(bob.Named("id"))),
		um.Returning("id"),
	), scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("prepare set main photo: %w", err)
	}

	w.setApprovedStmt, err = bob.PrepareQuery[idArgs](ctx, primary, psql.Update(
		um.Table(photosTable),
		um.SetCol("is_approved").To(psql.Raw("true")),
		um.Where(psql.Quote("id").EQ(bob.Named("id"))),
		um.Returning(photoColumns...),
	), scan.StructMapper[PhotoRow]())
	if err != nil {
		return nil, fmt.Errorf("prepare approve photo: %w", err)
	}

	w.deletePhotoStmt, err = bob.PrepareQuery[idArgs](ctx, primary, psql.Delete(
		dm.From(photosTable),
		dm.Where(psql.Quote("id").EQ(bob.Named("id"))),
		dm.Returning("id"),
	), scan.SingleColumnMapper[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("prepare delete photo: %w", err)
	}

	// re-enqueueing an id resets its retry budget
	w.enqueueAssetStmt, err = bob.PrepareQuery[enqueueArgs](ctx, primary, psql.RawQuery(`
		INSERT INTO photo_deletions (public_id) VALUES (?)
		ON CONFLICT (public_id) DO UPDATE SET enqueued_at = now(), attempts = 0, last_error = NULL
		RETURNING public_id
	`, bob.Named("public_id")), scan.SingleColumnMapper[string])
	if err != nil {
		return nil, fmt.Errorf("prepare enqueue asset deletion: %w", err)
	}

	return w, nil
}

func nullableVersion(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}

// UpdateMember implements MemberWriteStore.
func (w *PostgresMemberWriter) UpdateMember(ctx context.Context, params *domain.UpdateMemberParams) (*domain.Member, error) {
	row, err := w.updateStmt.One(ctx, updateMemberArgs{
		Username:     params.Username,
		Version:      nullableVersion(params.Version),
		Introduction: params.Fields.Introduction,
		LookingFor:   params.Fields.LookingFor,
		Interests:    params.Fields.Interests,
		City:         params.Fields.City,
		Country:      params.Fields.Country,
	})
	if err != nil {
		return nil, wrapMemberError(err)
	}
	m := toMember(row)
	return &m, nil
}

// ModifyMember implements MemberWriteStore.
func (w *PostgresMemberWriter) ModifyMember(ctx context.Context, patch *domain.MemberPatch) (*domain.Member, error) {
	if patch.Empty() {
		return nil, domain.ErrInvalidData
	}

	query := psql.Update(
		um.Table(membersTable),
		um.Where(psql.Quote("username").EQ(psql.Arg(patch.Username))),
	)
	if patch.Version > 0 {
		query.Apply(um.Where(psql.Quote("version_number").EQ(psql.Arg(patch.Version))))
	}

	// profile columns are NOT NULL; a null in the patch clears to ''
	for col, f := range map[string]domain.PatchField{
		"introduction": patch.Introduction,
		"looking_for":  patch.LookingFor,
		"interests":    patch.Interests,
		"city":         patch.City,
		"country":      patch.Country,
	} {
		switch {
		case !f.Set:
		case f.Null:
			query.Apply(um.SetCol(col).To(psql.Raw("''")))
		default:
			query.Apply(um.SetCol(col).To(psql.Arg(f.Value)))
		}
	}

	query.Apply(
		um.SetCol("version_number").To(psql.Raw("version_number + 1")),
		um.Returning(memberColumns...),
	)

	row, err := bob.One(ctx, w.db, query, scan.StructMapper[MemberRow]())
	if err != nil {
		return nil, wrapMemberError(err)
	}
	m := toMember(row)
	return &m, nil
}

// TouchLastActive implements MemberWriteStore.
func (w *PostgresMemberWriter) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) (string, error) {
	username, err := w.touchStmt.One(ctx, touchArgs{ID: id, LastActive: at})
	if err != nil {
		return "", wrapMemberError(err)
	}
	return username, nil
}

// WithTx implements MemberWriteStore.
func (w *PostgresMemberWriter) WithTx(ctx context.Context, fn func(ctx context.Context, tx domain.MemberWriteTx) error) error {
	return w.txm.WithTx(ctx, w.bindTx(fn))
}

// WithTimeoutTx implements MemberWriteStore.
func (w *PostgresMemberWriter) WithTimeoutTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx domain.MemberWriteTx) error) error {
	return w.txm.WithTimeoutTx(ctx, timeout, w.bindTx(fn))
}

func (w *PostgresMemberWriter) bindTx(fn func(ctx context.Context, tx domain.MemberWriteTx) error) db.TxFn {
	return func(ctx context.Context, q db.Querier) error {
		tx, ok := q.(bob.Tx)
		if !ok {
			return fmt.Errorf("querier is not a transaction")
		}
		return fn(ctx, &memberWriterTx{parent: w, tx: tx})
	}
}

// memberWriterTx reuses the parent's prepared statements inside one transaction.
type memberWriterTx struct {
	parent *PostgresMemberWriter
	tx     bob.Tx
}

var _ domain.MemberWriteTx = (*memberWriterTx)(nil)

func (t *memberWriterTx) LockMemberByUsername(ctx context.Context, username string) (uuid.UUID, error) {
	id, err := inTxQueryStmt(ctx, t.parent.lockByNameStmt, t.tx).One(ctx, usernameArgs{Username: username})
	if err != nil {
		return uuid.Nil, wrapMemberError(err)
	}
	return id, nil
}

func (t *memberWriterTx) LockMemberByID(ctx context.Context, id uuid.UUID) (string, error) {
	username, err := inTxQueryStmt(ctx, t.parent.lockByIDStmt, t.tx).One(ctx, idArgs{ID: id})
	if err != nil {
		return "", wrapMemberError(err)
	}
	return username, nil
}

func (t *memberWriterTx) GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	return getPhoto(ctx, t.tx, id, false)
}

func (t *memberWriterTx) GetPhotoForUpdate(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	return getPhoto(ctx, t.tx, id, true)
}

func (t *memberWriterTx) GetMainPhoto(ctx context.Context, memberID uuid.UUID) (*domain.Photo, error) {
	query := psql.Select(
		sm.Columns(photoColumns...),
		sm.From(photosTable),
		sm.Where(psql.Quote("member_id").EQ(psql.Arg(memberID))),
		sm.Where(psql.Quote("is_main").EQ(psql.Arg(true))),
		sm.ForUpdate(),
	)
	rows, err := bob.Allx[photoTransformer](ctx, t.tx, query, scan.StructMapper[PhotoRow]())
	if err != nil {
		return nil, wrapPhotoError(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *memberWriterTx) CountPhotos(ctx context.Context, memberID uuid.UUID) (int, error) {
	query := psql.Select(
		sm.Columns("COUNT(*)"),
		sm.From(photosTable),
		sm.Where(psql.Quote("member_id").EQ(psql.Arg(memberID))),
	)
	n, err := bob.One(ctx, t.tx, query, scan.SingleColumnMapper[int])
	if err != nil {
		return 0, wrapPhotoError(err)
	}
	return n, nil
}

func (t *memberWriterTx) InsertPhoto(ctx context.Context, p *domain.NewPhoto) (*domain.Photo, error) {
	row, err := inTxQueryStmt(ctx, t.parent.insertPhotoStmt, t.tx).One(ctx, insertPhotoArgs{
		ID:       p.ID,
		MemberID: p.MemberID,
		URL:      p.URL,
		PublicID: sql.NullString{String: p.PublicID, Valid: p.PublicID != ""},
		IsMain:   p.IsMain,
	})
	if err != nil {
		return nil, wrapPhotoError(err)
	}
	photo := toPhoto(row)
	return &photo, nil
}

func (t *memberWriterTx) SetMain(ctx context.Context, photoID uuid.UUID, isMain bool) error {
	_, err := inTxQueryStmt(ctx, t.parent.setMainStmt, t.tx).One(ctx, setMainArgs{ID: photoID, IsMain: isMain})
	return wrapPhotoError(err)
}

func (t *memberWriterTx) SetApproved(ctx context.Context, photoID uuid.UUID) (*domain.Photo, error) {
	row, err := inTxQueryStmt(ctx, t.parent.setApprovedStmt, t.tx).One(ctx, idArgs{ID: photoID})
	if err != nil {
		return nil, wrapPhotoError(err)
	}
	photo := toPhoto(row)
	return &photo, nil
}

func (t *memberWriterTx) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	_, err := inTxQueryStmt(ctx, t.parent.deletePhotoStmt, t.tx).One(ctx, idArgs{ID: photoID})
	return wrapPhotoError(err)
}

func (t *memberWriterTx) EnqueueAssetDeletion(ctx context.Context, publicID string) error {
	_, err := inTxQueryStmt(ctx, t.parent.enqueueAssetStmt, t.tx).One(ctx, enqueueArgs{PublicID: publicID})
	return wrapPhotoError(err)
}

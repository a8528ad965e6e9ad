package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

type threadCursor struct {
	Expires time.Time   `json:"exp"`
	Pivot   ThreadPivot `json:"pivot"`
}

// GetMessageThread returns the conversation between the two members, oldest
// first, and marks the messages addressed to the current user as read.
func (app *Application) GetMessageThread(ctx context.Context, params ThreadParams) (*ThreadPage, error) {
	q := ThreadQuery{
		CurrentUsername:   normalizeUsername(params.CurrentUsername),
		RecipientUsername: normalizeUsername(params.RecipientUsername),
		Limit:             params.Limit,
	}
	if q.CurrentUsername == "" || q.RecipientUsername == "" || q.Limit < 0 || q.Limit > MaxThreadLimit {
		return nil, ErrInvalidData
	}
	if params.Before != "" {
		if q.Limit == 0 {
			return nil, ErrInvalidData
		}
		pivot, err := app.decodeCursor(params.Before)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		q.Before = pivot
	}

	now := app.clock.Now()
	var msgs []Message
	err := app.writer.WithTx(ctx, func(ctx context.Context, tx MessageWriteTx) error {
		var err error
		msgs, err = tx.GetThread(ctx, q)
		if err != nil {
			return err
		}

		var unread []uuid.UUID
		for i := range msgs {
			if msgs[i].DateRead == nil && msgs[i].RecipientUsername == q.CurrentUsername {
				unread = append(unread, msgs[i].ID)
				msgs[i].DateRead = &now
			}
		}
		if len(unread) == 0 {
			return nil
		}
		return tx.MarkRead(ctx, unread, now)
	})
	if err != nil {
		return nil, app.unexpected(ctx, err)
	}

	page := &ThreadPage{
		Messages:        msgs,
		RecipientOnline: app.inThread(ctx, GroupName(q.CurrentUsername, q.RecipientUsername), q.RecipientUsername),
	}
	if q.Limit > 0 && len(msgs) == q.Limit {
		oldest := msgs[0]
		page.NextCursor, err = app.encodeCursor(ThreadPivot{MessageSent: oldest.MessageSent, ID: oldest.ID})
		if err != nil {
			return nil, app.unexpected(ctx, err)
		}
	}
	return page, nil
}

func (app *Application) encodeCursor(pivot ThreadPivot) (string, error) {
	if app.signer == nil {
		return "", ErrInvalidCursor
	}
	bs, err := json.Marshal(threadCursor{Expires: app.clock.Now().Add(app.cursorTTL), Pivot: pivot})
	if err != nil {
		return "", err
	}
	return app.signer.Sign(bs)
}

func (app *Application) decodeCursor(token string) (*ThreadPivot, error) {
	if app.signer == nil {
		return nil, ErrInvalidCursor
	}
	raw, err := app.signer.Verify(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c threadCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.Expires.IsZero() || !app.clock.Now().Before(c.Expires) || c.Pivot.ID.IsNil() {
		return nil, ErrInvalidCursor
	}
	return &c.Pivot, nil
}

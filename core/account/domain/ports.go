package domain

import (
	"context"

	"datingapp/modules/auth"
)

type AccountStore interface {
	// CreateAccount inserts the member with its roles. A taken username
	// yields ErrUsernameTaken.
	CreateAccount(ctx context.Context, acc *NewAccount) (*Account, error)
	GetAccount(ctx context.Context, username string) (*Account, error)
}

type GraphStore interface {
	ExportGraph(ctx context.Context, lookup GraphLookup) (*Graph, error)
}

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Compare(hash []byte, password string) error
}

type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

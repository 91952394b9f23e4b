package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the verified principal behind a bearer credential. It is
// resolved once per request and never persisted; the identity provider owns
// the account data.
type Identity struct {
	ID    string
	Email string
}

// Verifier exchanges a bearer token for a verified Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

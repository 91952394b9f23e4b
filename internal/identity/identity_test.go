package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims TokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTVerifierValidToken(t *testing.T) {
	v := NewJWTVerifier("secret")
	token := signToken(t, "secret", TokenClaims{
		Email: "vet@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	id, err := v.Verify(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", id.ID)
	assert.Equal(t, "vet@example.com", id.Email)
}

func TestJWTVerifierExpiredToken(t *testing.T) {
	v := NewJWTVerifier("secret")
	token := signToken(t, "secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := v.Verify(context.Background(), token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifierWrongSecret(t *testing.T) {
	v := NewJWTVerifier("secret")
	token := signToken(t, "other-secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(context.Background(), token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierGarbage(t *testing.T) {
	v := NewJWTVerifier("secret")

	_, err := v.Verify(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifierMissingSubject(t *testing.T) {
	v := NewJWTVerifier("secret")
	token := signToken(t, "secret", TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(context.Background(), token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoTrueVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"user-42","email":"vet@example.com"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewGoTrueVerifier(srv.URL, "anon-key")

	id, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "user-42", id.ID)

	_, err = v.Verify(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoTrueVerifierProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewGoTrueVerifier(srv.URL, "anon-key")

	_, err := v.Verify(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken, "provider outage is not a token rejection")
}

// countingVerifier counts how many times the inner provider is consulted.
type countingVerifier struct {
	calls int
	id    *Identity
	err   error
}

func (c *countingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.id, nil
}

func TestCachingVerifierHitsProviderOnce(t *testing.T) {
	inner := &countingVerifier{id: &Identity{ID: "user-7"}}
	v := NewCachingVerifier(inner)

	for i := 0; i < 3; i++ {
		id, err := v.Verify(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "user-7", id.ID)
	}

	assert.Equal(t, 1, inner.calls)
}

func TestCachingVerifierDoesNotCacheFailures(t *testing.T) {
	inner := &countingVerifier{err: ErrInvalidToken}
	v := NewCachingVerifier(inner)

	for i := 0; i < 2; i++ {
		_, err := v.Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrInvalidToken)
	}

	assert.Equal(t, 2, inner.calls)
}

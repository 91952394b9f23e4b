package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set issued by the identity provider's access
// tokens (HS256, shared project secret).
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates access tokens locally against the provider's shared
// signing secret. No network call; expiry and signature are still enforced.
type JWTVerifier struct {
	secretKey string
}

func NewJWTVerifier(secretKey string) *JWTVerifier {
	return &JWTVerifier{secretKey: secretKey}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}

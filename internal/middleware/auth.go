package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vetintel/aigateway/internal/apierror"
	"github.com/vetintel/aigateway/internal/identity"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Auth verifies the bearer credential and injects the resolved Identity into
// the request context. Runs before validation and rate limiting: an
// unauthenticated caller learns nothing about quotas or content rules.
func Auth(verifier identity.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierror.Write(w, apierror.New(apierror.KindUnauthenticated, "Unauthorized"))
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				apierror.Write(w, apierror.New(apierror.KindUnauthenticated, "Unauthorized"))
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				apierror.Write(w, apierror.New(apierror.KindUnauthenticated, "Authentication failed"))
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the verified identity placed by Auth, or nil.
func IdentityFrom(ctx context.Context) *identity.Identity {
	if id, ok := ctx.Value(identityContextKey).(*identity.Identity); ok {
		return id
	}
	return nil
}

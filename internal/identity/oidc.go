package identity

import (
	"context"
	"errors"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates ID tokens against any OpenID Connect provider using
// discovery. Used when the deployment fronts a standards-compliant IdP
// instead of the hosted auth service.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if clientID == "" {
		return nil, errors.New("client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: idToken.Subject, Email: claims.Email}, nil
}

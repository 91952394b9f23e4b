package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// GoTrueVerifier resolves tokens by calling the identity provider's user
// endpoint, the same exchange the hosted auth service performs. This is the
// default mode: the provider remains the source of truth for revocation.
type GoTrueVerifier struct {
	baseURL string
	anonKey string
	client  *http.Client
}

func NewGoTrueVerifier(baseURL, anonKey string) *GoTrueVerifier {
	return &GoTrueVerifier{
		baseURL: baseURL,
		anonKey: anonKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *GoTrueVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.anonKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}

	var user goTrueUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: user.ID, Email: user.Email}, nil
}

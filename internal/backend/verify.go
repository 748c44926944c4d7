package backend

import (
	"context"
	"fmt"
)

// Verifier proves a provider-issued token belongs to the user claiming
// it by fetching that user's profile with the token. The backend
// rejects the lookup when the token is invalid or owned by someone
// else.
type Verifier struct {
	baseURL string
	http    Doer
}

// NewVerifier constructs a Verifier against the backend base URL. A nil
// Doer falls back to the client's default HTTP client.
func NewVerifier(baseURL string, d Doer) *Verifier {
	return &Verifier{baseURL: baseURL, http: d}
}

// Verify checks the provider token for the given user. It returns
// ErrUnauthorized when the token is rejected or resolves to a different
// user.
func (v *Verifier) Verify(ctx context.Context, userID, providerToken string) error {
	client := New(v.baseURL,
		WithHTTPClient(v.http),
		WithSession(providerToken),
		WithRetryPolicy(RetryPolicy{}),
	)

	profile, err := client.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("verify identity: %w", err)
	}
	if profile.ID != userID {
		return ErrUnauthorized
	}
	return nil
}

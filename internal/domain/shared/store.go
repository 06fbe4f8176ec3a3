package shared

import "context"

// Credentials holds the bearer token pair issued by an upstream provider.
// RefreshToken may be empty for providers that do not rotate tokens.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// CredentialStore persists provider credentials across restarts.
// Implementations must be safe for concurrent use.
type CredentialStore interface {
	// Load returns the stored credentials for the given provider slot.
	// Returns ErrNotFound when the slot has never been written.
	Load(ctx context.Context, provider string) (*Credentials, error)

	// Save overwrites the credentials for the given provider slot.
	Save(ctx context.Context, provider string, creds *Credentials) error
}

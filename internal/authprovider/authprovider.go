// Package authprovider wraps the hosted identity service that stores
// credentials for this application. The local users table stays the system
// of record; every account here mirrors one external identity keyed by
// email, kept in sync by the auth service's compensation logic.
package authprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrIdentityNotFound is returned when no identity matches a lookup.
var ErrIdentityNotFound = errors.New("identity not found in auth provider")

// Identity is an account held by the external provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityUpdate carries the mutable parts of an identity. Nil fields are
// left untouched.
type IdentityUpdate struct {
	Password *string        `json:"password,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Client is the provider surface the auth service depends on.
type Client interface {
	// CreateIdentity registers a confirmed identity with the given credentials.
	CreateIdentity(ctx context.Context, email, password string) (*Identity, error)

	// FindIdentityByEmail scans the provider's user listing for an email.
	FindIdentityByEmail(ctx context.Context, email string) (*Identity, error)

	// UpdateIdentity applies a partial update to an identity.
	UpdateIdentity(ctx context.Context, id string, update IdentityUpdate) error

	// DeleteIdentity removes an identity.
	DeleteIdentity(ctx context.Context, id string) error
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth provider: %s (status %d)", e.Message, e.Status)
}

// IsAlreadyRegistered reports whether err means the email already has an
// identity at the provider. This happens when the two systems have drifted:
// no local row exists but the external identity does.
func IsAlreadyRegistered(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 422 ||
		strings.Contains(strings.ToLower(apiErr.Message), "already been registered")
}

package session

import (
	"context"

	"github.com/felixgeelhaar/outreach/internal/domain"
)

// KV is the durable key-value backend behind the persisted session.
// Both the JSON document store and the SQLite store implement this.
type KV interface {
	// Get returns the value for key and whether it exists
	Get(key string) (string, bool, error)

	// SetMany writes all entries or none of them
	SetMany(entries map[string]string) error

	// Delete removes keys; missing keys are not an error
	Delete(keys ...string) error

	// Keys lists the stored keys in sorted order
	Keys() ([]string, error)
}

// AuthAPI is the remote side of the session used by the container
type AuthAPI interface {
	// Login exchanges credentials for a token and admin record
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error)

	// Register creates an admin account without authenticating
	Register(ctx context.Context, reg domain.Registration) error

	// Profile fetches the current admin record
	Profile(ctx context.Context) (*domain.User, error)

	// UpdateProfile replaces the editable admin fields
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error)

	// ChangePassword rotates the admin's password
	ChangePassword(ctx context.Context, change domain.PasswordChange) error
}

// Ensure Store satisfies the read side used by the route guard
var _ interface{ IsAuthenticated() bool } = (*Store)(nil)

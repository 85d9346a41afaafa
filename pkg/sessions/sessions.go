package sessions

import (
	"context"
	"time"
)

// PendingSession represents a user who has authenticated with the external
// identity provider but has not yet completed local registration.
type PendingSession struct {
	// ID is the opaque session identifier. Exactly one session exists per
	// identifier.
	ID string `json:"id"`

	// Email is the verified address asserted by the identity provider.
	Email string `json:"email"`

	// RemoteUserID is the identity provider's identifier for the user.
	RemoteUserID string `json:"remote_user_id"`

	// Affiliation is the role tag asserted by the identity provider
	// (e.g. student, staff).
	Affiliation string `json:"affiliation"`

	// ClientRedirectURL is where the client resumes after registration.
	ClientRedirectURL string `json:"client_redirect_url"`

	// DisplayName is the default display name, may be empty.
	DisplayName string `json:"displayname"`

	// ExpiresAt bounds how long an abandoned session is kept. Zero means
	// no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session has passed its expiry time
func (s *PendingSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store defines how pending sessions are resolved and removed. The flow
// reads and deletes; creation belongs to the identity-provider callback,
// which uses Put.
type Store interface {
	// Get returns the session for the identifier, or nil if none exists.
	Get(ctx context.Context, sessionID string) (*PendingSession, error)

	// Put stores a session under its identifier.
	Put(ctx context.Context, s *PendingSession) error

	// Delete removes a session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}

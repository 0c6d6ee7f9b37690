package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession means the token resolves to nothing, or the stored
	// record is missing required fields.
	ErrNoSession = errors.New("session: no session")
	// ErrExpired means the 24h absolute lifetime has passed.
	ErrExpired = errors.New("session: expired")
	// ErrInactive means the idle window has passed.
	ErrInactive = errors.New("session: expired due to inactivity")
)

// Session is the persisted admin session record. It is owned exclusively by
// the Manager; nothing else writes to the store.
type Session struct {
	AdminEmail     string    `json:"admin_email"`
	Role           string    `json:"role"`
	Token          string    `json:"token"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Can reports whether the session's role grants the permission.
func (s Session) Can(permission string) bool {
	return HasPermission(s.Role, permission)
}

// Store is a synchronous key-value store for sessions keyed by token. It has
// no expiry semantics of its own; expiry is enforced by the Manager's
// timestamp checks.
type Store interface {
	Get(ctx context.Context, token string) (Session, bool, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, token string) error
}

type sessionContextKey struct{}

// ContextWithSession attaches the verified session to the context.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext extracts the verified session from the context.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}

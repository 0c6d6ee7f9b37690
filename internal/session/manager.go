package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"nexchat.app/internal/audit"
)

const (
	// DefaultTTL is the absolute session lifetime.
	DefaultTTL = 24 * time.Hour
	// DefaultIdleTimeout forces re-login after this much inactivity.
	DefaultIdleTimeout = 30 * time.Minute

	tokenBytes = 32
)

// Manager owns the session lifecycle: create, verify, invalidate. Every
// check fails closed; an unverifiable session is treated as absent.
type Manager struct {
	store    Store
	recorder *audit.Recorder
	ttl      time.Duration
	idle     time.Duration
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the absolute session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithIdleTimeout overrides the inactivity window.
func WithIdleTimeout(idle time.Duration) Option {
	return func(m *Manager) {
		if idle > 0 {
			m.idle = idle
		}
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager over the given store.
func NewManager(store Store, recorder *audit.Recorder, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		recorder: recorder,
		ttl:      DefaultTTL,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a session for a validated admin and returns it with a fresh
// 256-bit token. Emits SESSION_CREATED.
func (m *Manager) Create(ctx context.Context, email, role string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return Session{}, fmt.Errorf("%w: email is required", ErrNoSession)
	}
	if role == "" {
		role = RoleAdmin
	}
	if !KnownRole(role) {
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrNoSession, role)
	}

	token, err := generateToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}

	now := m.now().UTC()
	sess := Session{
		AdminEmail:     email,
		Role:           role,
		Token:          token,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	m.recorder.Record(ctx, audit.Event{
		Type:       audit.EventSessionCreated,
		AdminEmail: email,
		Role:       role,
		Details:    "Role: " + role,
	})
	return sess, nil
}

// Verify checks the token before a gated action. The absolute lifetime is
// checked first, then the idle window; either failure clears the persisted
// session and tells the caller to send the operator back to login. On
// success the activity timestamp is refreshed.
func (m *Manager) Verify(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoSession
	}

	sess, ok, err := m.store.Get(ctx, token)
	if err != nil {
		// Fail closed on an unreadable store.
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !ok {
		return Session{}, ErrNoSession
	}

	now := m.now().UTC()
	if now.Sub(sess.CreatedAt) > m.ttl {
		m.clear(ctx, sess, audit.EventSessionExpired, "session lifetime exceeded")
		return Session{}, ErrExpired
	}
	if now.Sub(sess.LastActivityAt) > m.idle {
		m.clear(ctx, sess, audit.EventSessionExpired, "inactivity")
		return Session{}, ErrInactive
	}
	if sess.Token == "" || sess.AdminEmail == "" {
		return Session{}, ErrNoSession
	}

	sess.LastActivityAt = now
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return sess, nil
}

// Invalidate ends a session from any state and logs the reason.
func (m *Manager) Invalidate(ctx context.Context, token, reason string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoSession
	}
	sess, ok, err := m.store.Get(ctx, token)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return err
	}
	if ok {
		if reason == "" {
			reason = "session invalidated"
		}
		m.recorder.Record(ctx, audit.Event{
			Type:       audit.EventSessionInvalidated,
			AdminEmail: sess.AdminEmail,
			Role:       sess.Role,
			Details:    reason,
		})
	}
	return nil
}

// CanPerformAction resolves the role's permission set. It never returns an
// error: no session or an unknown role simply yields false.
func (m *Manager) CanPerformAction(sess Session, permission string) bool {
	return sess.Can(permission)
}

func (m *Manager) clear(ctx context.Context, sess Session, eventType, reason string) {
	_ = m.store.Delete(ctx, sess.Token)
	m.recorder.Record(ctx, audit.Event{
		Type:       eventType,
		AdminEmail: sess.AdminEmail,
		Role:       sess.Role,
		Details:    reason,
	})
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

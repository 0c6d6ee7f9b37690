package audit

import (
	"context"
	"time"
)

// Event types written by the security and moderation layers.
const (
	EventSessionCreated     = "SESSION_CREATED"
	EventSessionExpired     = "SESSION_EXPIRED"
	EventSessionInvalidated = "SESSION_INVALIDATED"
	EventInvalidAdmin       = "INVALID_ADMIN"
	EventInactiveAdmin      = "INACTIVE_ADMIN"
	EventValidationError    = "VALIDATION_ERROR"
	EventLoginFailed        = "LOGIN_FAILED"
	EventPermissionDenied   = "PERMISSION_DENIED"
	EventAdminCreated       = "ADMIN_CREATED"
	EventAdminStatusChanged = "ADMIN_STATUS_CHANGED"
	EventAdminRemoved       = "ADMIN_REMOVED"
	EventUserBlockToggled   = "USER_BLOCK_TOGGLED"
	EventUserDeleted        = "USER_DELETED"
	EventUserBanned         = "USER_BANNED"
	EventReportUpdated      = "REPORT_UPDATED"
	EventVideoFlagged       = "VIDEO_FLAGGED"
	EventVideoDeleted       = "VIDEO_DELETED"
	EventTokensMinted       = "TOKENS_MINTED"
)

const maxUserAgentLen = 255

// Event is an append-only security log record. Entries are never mutated or
// deleted once written.
type Event struct {
	ID         string        `json:"id"`
	Type       string        `json:"event_type"`
	AdminEmail string        `json:"admin_email"`
	Role       string        `json:"admin_role,omitempty"`
	Details    string        `json:"details,omitempty"`
	Client     ClientContext `json:"client"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ClientContext records where a logged action originated.
type ClientContext struct {
	UserAgent  string `json:"user_agent,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
}

// Sink persists security events.
type Sink interface {
	Append(ctx context.Context, e Event) error
	// Recent returns up to limit events newest-first, optionally filtered
	// by admin email.
	Recent(ctx context.Context, adminEmail string, limit int) ([]Event, error)
}

type clientContextKey struct{}

// WithClientContext attaches request client metadata for subsequent Record
// calls on the same context.
func WithClientContext(ctx context.Context, cc ClientContext) context.Context {
	if len(cc.UserAgent) > maxUserAgentLen {
		cc.UserAgent = cc.UserAgent[:maxUserAgentLen]
	}
	return context.WithValue(ctx, clientContextKey{}, cc)
}

func clientContextFrom(ctx context.Context) ClientContext {
	if ctx == nil {
		return ClientContext{}
	}
	cc, _ := ctx.Value(clientContextKey{}).(ClientContext)
	return cc
}

// Package content defines the platform data the console moderates: user
// accounts, videos, and reports. The console references these entities, it
// does not own them; end-user clients create them out of band.
package content

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("content: not found")
	ErrInvalidInput = errors.New("content: invalid input")
)

// Report lifecycle statuses. Transitions are deliberately unguarded: any
// status is reachable from any other, matching how moderators actually
// re-open and re-triage reports.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewed  = "reviewed"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report kinds.
const (
	ReportKindUser  = "user-report"
	ReportKindVideo = "video-report"
)

// Resolution actions recorded on terminal reports.
const (
	ActionVideoDeleted = "video_deleted"
	ActionDismissed    = "dismissed"
)

// UserAccount is an end-user account of the platform.
type UserAccount struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsBlocked bool      `json:"is_blocked"`
	IsBanned  bool      `json:"is_banned"`
	BanReason string    `json:"ban_reason,omitempty"`
	Tokens    int64     `json:"tokens"`
	IsOnline  bool      `json:"is_online"`
	CreatedAt time.Time `json:"created_at"`
}

// Video is an uploaded reel.
type Video struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Title     string     `json:"title"`
	Flagged   bool       `json:"flagged"`
	FlaggedBy string     `json:"flagged_by,omitempty"`
	FlaggedAt *time.Time `json:"flagged_at,omitempty"`
	Views     int64      `json:"views"`
	Likes     int64      `json:"likes"`
	Comments  int64      `json:"comments"`
	CreatedAt time.Time  `json:"created_at"`
}

// Report is an end-user complaint about a user or a video.
type Report struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	ReporterID  string     `json:"reporter_id"`
	TargetID    string     `json:"target_id"`
	Reason      string     `json:"reason"`
	Details     string     `json:"details,omitempty"`
	Status      string     `json:"status"`
	ActionTaken string     `json:"action_taken,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Store is the document-store contract the console depends on. Any backend
// offering get-all, get-by-id, equality filters, field updates, an atomic
// numeric increment, and delete can implement it.
type Store interface {
	Users(ctx context.Context) ([]UserAccount, error)
	User(ctx context.Context, id string) (UserAccount, error)
	UserByEmail(ctx context.Context, email string) (UserAccount, error)
	BlockedUsers(ctx context.Context) ([]UserAccount, error)
	InsertUser(ctx context.Context, u UserAccount) error
	SetUserBlocked(ctx context.Context, id string, blocked bool) error
	SetUserBanned(ctx context.Context, id, reason string, at time.Time) error
	// IncrementTokens adds delta to the user's balance using the store's
	// native increment, safe under concurrent minting to the same account.
	IncrementTokens(ctx context.Context, id string, delta int64) error
	DeleteUser(ctx context.Context, id string) error

	Videos(ctx context.Context) ([]Video, error)
	Video(ctx context.Context, id string) (Video, error)
	VideosByAuthor(ctx context.Context, authorID string) ([]Video, error)
	InsertVideo(ctx context.Context, v Video) error
	SetVideoFlagged(ctx context.Context, id, flaggedBy string, at time.Time) error
	DeleteVideo(ctx context.Context, id string) error

	Reports(ctx context.Context) ([]Report, error)
	Report(ctx context.Context, id string) (Report, error)
	ReportsByStatus(ctx context.Context, status string) ([]Report, error)
	InsertReport(ctx context.Context, r Report) error
	SetReportStatus(ctx context.Context, id, status, actionTaken string, at time.Time) error

	// CountMessages feeds the overview stats; chat content itself is out
	// of the console's reach.
	CountMessages(ctx context.Context) (int64, error)
}

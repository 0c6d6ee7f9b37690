package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/content"
	"nexchat.app/internal/identity"
	"nexchat.app/internal/obs"
	"nexchat.app/internal/session"
)

var (
	ErrNotFound     = errors.New("moderation: target not found")
	ErrInvalidInput = errors.New("moderation: invalid input")
	// ErrReportUpdateFailed means the reported video was removed but the
	// report status write failed, leaving an open report for a deleted
	// target. The operator retries the status update, not the deletion.
	ErrReportUpdateFailed = errors.New("moderation: report update failed after video removal")
)

// VideoFailure records a single video that could not be removed during a
// creator ban. The ban itself still stands.
type VideoFailure struct {
	VideoID string `json:"video_id"`
	Reason  string `json:"reason"`
}

// BanResult summarizes a creator ban. The ban flag is written before any
// video removal is attempted, so Banned is true even when deletions fail.
type BanResult struct {
	Banned        bool           `json:"banned"`
	DeletedVideos int            `json:"deleted_videos"`
	Failures      []VideoFailure `json:"failures,omitempty"`
}

// Workflow implements the moderation operations over the content store.
type Workflow struct {
	store    content.Store
	idp      identity.Provider
	recorder *audit.Recorder
	now      func() time.Time
}

type Option func(*Workflow)

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(store content.Store, idp identity.Provider, recorder *audit.Recorder, opts ...Option) *Workflow {
	w := &Workflow{
		store:    store,
		idp:      idp,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ToggleUserBlock flips the block flag and returns the new state. Nothing is
// written when the user does not exist.
func (w *Workflow) ToggleUserBlock(ctx context.Context, userID string) (bool, error) {
	u, err := w.store.User(ctx, userID)
	if err != nil {
		return false, w.mapErr(err)
	}
	next := !u.IsBlocked
	if err := w.store.SetUserBlocked(ctx, userID, next); err != nil {
		return false, w.mapErr(err)
	}
	w.record(ctx, audit.EventUserBlockToggled,
		fmt.Sprintf("user %s blocked=%t", userID, next))
	return next, nil
}

// DeleteUser removes the account record. The sign-in credential is removed
// best-effort afterwards; a credential failure does not undo the deletion.
func (w *Workflow) DeleteUser(ctx context.Context, userID string) error {
	u, err := w.store.User(ctx, userID)
	if err != nil {
		return w.mapErr(err)
	}
	if err := w.store.DeleteUser(ctx, userID); err != nil {
		return w.mapErr(err)
	}
	if w.idp != nil && u.Email != "" {
		if err := w.idp.DeleteCredential(ctx, u.Email); err != nil {
			obs.Logger().Debug("credential cleanup failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	w.record(ctx, audit.EventUserDeleted, fmt.Sprintf("user %s deleted", userID))
	return nil
}

// HandleReport moves a report to the given status. Transitions are not
// guarded, so a resolved report can be reopened by setting it back to
// pending.
func (w *Workflow) HandleReport(ctx context.Context, reportID, status, actionTaken string) error {
	switch status {
	case content.ReportStatusPending, content.ReportStatusReviewed,
		content.ReportStatusResolved, content.ReportStatusDismissed:
	default:
		return fmt.Errorf("%w: unknown report status %q", ErrInvalidInput, status)
	}
	if err := w.store.SetReportStatus(ctx, reportID, status, actionTaken, w.now().UTC()); err != nil {
		return w.mapErr(err)
	}
	w.record(ctx, audit.EventReportUpdated,
		fmt.Sprintf("report %s -> %s (%s)", reportID, status, actionTaken))
	return nil
}

// DismissReport closes a report without action against the target.
func (w *Workflow) DismissReport(ctx context.Context, reportID string) error {
	return w.HandleReport(ctx, reportID, content.ReportStatusDismissed, content.ActionDismissed)
}

// FlagVideo marks a video for review, stamping who flagged it and when.
func (w *Workflow) FlagVideo(ctx context.Context, videoID, flaggedBy string) error {
	if err := w.store.SetVideoFlagged(ctx, videoID, flaggedBy, w.now().UTC()); err != nil {
		return w.mapErr(err)
	}
	w.record(ctx, audit.EventVideoFlagged,
		fmt.Sprintf("video %s flagged by %s", videoID, flaggedBy))
	return nil
}

// DeleteVideo removes a single video.
func (w *Workflow) DeleteVideo(ctx context.Context, videoID string) error {
	if err := w.store.DeleteVideo(ctx, videoID); err != nil {
		return w.mapErr(err)
	}
	w.record(ctx, audit.EventVideoDeleted, fmt.Sprintf("video %s deleted", videoID))
	return nil
}

// DeleteReportedVideo removes the video named by a report and then resolves
// the report. A resolve failure after the deletion is surfaced so the
// operator can retry the status update.
func (w *Workflow) DeleteReportedVideo(ctx context.Context, reportID string) error {
	r, err := w.store.Report(ctx, reportID)
	if err != nil {
		return w.mapErr(err)
	}
	if r.Kind != content.ReportKindVideo {
		return fmt.Errorf("%w: report %s does not target a video", ErrInvalidInput, reportID)
	}
	if err := w.DeleteVideo(ctx, r.TargetID); err != nil {
		return err
	}
	if err := w.store.SetReportStatus(ctx, reportID, content.ReportStatusResolved, content.ActionVideoDeleted, w.now().UTC()); err != nil {
		obs.Logger().Error("report resolve failed after video removal",
			zap.String("report_id", reportID),
			zap.String("video_id", r.TargetID),
			zap.Error(err))
		return fmt.Errorf("%w: video %s removed, report %s still open: %v",
			ErrReportUpdateFailed, r.TargetID, reportID, err)
	}
	w.record(ctx, audit.EventReportUpdated,
		fmt.Sprintf("report %s -> %s (%s)", reportID, content.ReportStatusResolved, content.ActionVideoDeleted))
	return nil
}

// BanCreator bans a user and removes each of their videos. The ban flag is
// written first so the account is locked even if some removals fail; every
// failed removal is reported back for manual cleanup.
func (w *Workflow) BanCreator(ctx context.Context, userID, reason string) (BanResult, error) {
	if reason == "" {
		reason = "terms of service violation"
	}
	if err := w.store.SetUserBanned(ctx, userID, reason, w.now().UTC()); err != nil {
		return BanResult{}, w.mapErr(err)
	}
	res := BanResult{Banned: true}

	videos, err := w.store.VideosByAuthor(ctx, userID)
	if err != nil {
		obs.Logger().Error("listing videos for banned creator failed",
			zap.String("user_id", userID), zap.Error(err))
		res.Failures = append(res.Failures, VideoFailure{Reason: err.Error()})
	} else {
		for _, v := range videos {
			if err := w.store.DeleteVideo(ctx, v.ID); err != nil {
				res.Failures = append(res.Failures, VideoFailure{VideoID: v.ID, Reason: err.Error()})
				continue
			}
			res.DeletedVideos++
		}
	}

	w.record(ctx, audit.EventUserBanned,
		fmt.Sprintf("user %s banned (%s), %d videos removed, %d failed",
			userID, reason, res.DeletedVideos, len(res.Failures)))
	return res, nil
}

// record stamps the acting admin from the verified session, when present.
func (w *Workflow) record(ctx context.Context, eventType, details string) {
	e := audit.Event{Type: eventType, Details: details}
	if sess, ok := session.FromContext(ctx); ok {
		e.AdminEmail = sess.AdminEmail
		e.Role = sess.Role
	}
	w.recorder.Record(ctx, e)
}

func (w *Workflow) mapErr(err error) error {
	if errors.Is(err, content.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

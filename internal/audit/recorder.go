package audit

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"nexchat.app/internal/ids"
	"nexchat.app/internal/obs"
)

const defaultTrailLimit = 50

// Recorder writes sanitized security events to a sink. Writes are
// fire-and-forget: a sink failure is logged and never propagated, so an
// audit outage cannot block the action being audited.
type Recorder struct {
	sink   Sink
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewRecorder wraps sink. A nil sink produces a recorder that drops events,
// which keeps call sites unconditional.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{
		sink:   sink,
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	if now != nil {
		r.now = now
	}
	return r
}

// Record appends e, filling in ID, timestamp, and client context, and
// neutralizing any markup in the details before storage.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil || r.sink == nil {
		return
	}
	e.ID = ids.New()
	e.Details = strings.TrimSpace(r.policy.Sanitize(e.Details))
	e.Client = clientContextFrom(ctx)
	e.CreatedAt = r.now().UTC()

	if err := r.sink.Append(ctx, e); err != nil {
		obs.Logger().Warn("security event dropped",
			zap.String("event_type", e.Type),
			zap.String("admin_email", e.AdminEmail),
			zap.Error(err))
	}
}

// Trail returns the most recent events, optionally filtered by admin email.
// Limit defaults to 50.
func (r *Recorder) Trail(ctx context.Context, adminEmail string, limit int) ([]Event, error) {
	if r == nil || r.sink == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultTrailLimit
	}
	return r.sink.Recent(ctx, strings.TrimSpace(adminEmail), limit)
}

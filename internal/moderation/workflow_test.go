package moderation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/content"
	"nexchat.app/internal/identity"
)

func newTestWorkflow(t *testing.T) (*Workflow, *content.MemoryStore, *audit.MemorySink) {
	t.Helper()
	store := content.NewMemoryStore(nil)
	sink := audit.NewMemorySink()
	w := NewWorkflow(store, identity.NewMemoryProvider(), audit.NewRecorder(sink))
	return w, store, sink
}

func lastEvent(t *testing.T, sink *audit.MemorySink) audit.Event {
	t.Helper()
	events, err := sink.Recent(context.Background(), "", 1)
	if err != nil || len(events) == 0 {
		t.Fatalf("no audit events recorded (err=%v)", err)
	}
	return events[0]
}

func TestToggleUserBlock(t *testing.T) {
	w, store, sink := newTestWorkflow(t)
	ctx := context.Background()
	store.InsertUser(ctx, content.UserAccount{ID: "u1"})

	blocked, err := w.ToggleUserBlock(ctx, "u1")
	if err != nil || !blocked {
		t.Fatalf("first toggle: blocked=%t err=%v", blocked, err)
	}
	blocked, err = w.ToggleUserBlock(ctx, "u1")
	if err != nil || blocked {
		t.Fatalf("second toggle: blocked=%t err=%v", blocked, err)
	}
	if ev := lastEvent(t, sink); ev.Type != audit.EventUserBlockToggled {
		t.Fatalf("event type = %q", ev.Type)
	}
}

func TestToggleUserBlockMissingUser(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()

	if _, err := w.ToggleUserBlock(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	users, _ := store.Users(ctx)
	if len(users) != 0 {
		t.Fatalf("no write expected, users = %d", len(users))
	}
}

func TestDeleteUserRemovesCredential(t *testing.T) {
	store := content.NewMemoryStore(nil)
	idp := identity.NewMemoryProvider()
	w := NewWorkflow(store, idp, audit.NewRecorder(audit.NewMemorySink()))
	ctx := context.Background()

	store.InsertUser(ctx, content.UserAccount{ID: "u1", Email: "creator@nexchat.app"})
	idp.CreateCredential(ctx, "creator@nexchat.app", "pw")

	if err := w.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.User(ctx, "u1"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("user still present: %v", err)
	}
	if idp.Has("creator@nexchat.app") {
		t.Fatal("credential still present")
	}
}

func TestDeleteUserSurvivesCredentialFailure(t *testing.T) {
	store := content.NewMemoryStore(nil)
	idp := identity.NewMemoryProvider()
	idp.FailDelete = true
	w := NewWorkflow(store, idp, audit.NewRecorder(audit.NewMemorySink()))
	ctx := context.Background()

	store.InsertUser(ctx, content.UserAccount{ID: "u1", Email: "creator@nexchat.app"})
	if err := w.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("credential failure must not surface: %v", err)
	}
	if _, err := store.User(ctx, "u1"); !errors.Is(err, content.ErrNotFound) {
		t.Fatal("account record should be gone")
	}
}

func TestHandleReportTransitions(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	store.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindUser, TargetID: "u1", CreatedAt: time.Now()})

	if err := w.HandleReport(ctx, "r1", content.ReportStatusResolved, "warning_issued"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	r, _ := store.Report(ctx, "r1")
	if r.Status != content.ReportStatusResolved || r.UpdatedAt == nil {
		t.Fatalf("after resolve: %+v", r)
	}

	// Resolved reports may be reopened.
	if err := w.HandleReport(ctx, "r1", content.ReportStatusPending, ""); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	r, _ = store.Report(ctx, "r1")
	if r.Status != content.ReportStatusPending {
		t.Fatalf("status after reopen = %q", r.Status)
	}

	if err := w.HandleReport(ctx, "r1", "escalated", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown status: %v", err)
	}
}

func TestDeleteReportedVideo(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	store.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	store.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindVideo, TargetID: "v1"})

	if err := w.DeleteReportedVideo(ctx, "r1"); err != nil {
		t.Fatalf("delete reported video: %v", err)
	}
	if _, err := store.Video(ctx, "v1"); !errors.Is(err, content.ErrNotFound) {
		t.Fatal("video should be gone")
	}
	r, _ := store.Report(ctx, "r1")
	if r.Status != content.ReportStatusResolved || r.ActionTaken != content.ActionVideoDeleted {
		t.Fatalf("report after deletion: %+v", r)
	}
}

// stuckReportStore fails every report status write.
type stuckReportStore struct {
	content.Store
	err error
}

func (s *stuckReportStore) SetReportStatus(ctx context.Context, id, status, actionTaken string, at time.Time) error {
	return s.err
}

func TestDeleteReportedVideoResolveFailure(t *testing.T) {
	mem := content.NewMemoryStore(nil)
	ctx := context.Background()
	mem.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	mem.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindVideo, TargetID: "v1"})

	store := &stuckReportStore{Store: mem, err: errors.New("storage timeout")}
	w := NewWorkflow(store, nil, audit.NewRecorder(audit.NewMemorySink()))

	err := w.DeleteReportedVideo(ctx, "r1")
	if !errors.Is(err, ErrReportUpdateFailed) {
		t.Fatalf("expected ErrReportUpdateFailed, got %v", err)
	}
	// The deletion committed; the report stays open for a retried resolve.
	if _, verr := mem.Video(ctx, "v1"); !errors.Is(verr, content.ErrNotFound) {
		t.Fatal("video should be gone")
	}
	r, _ := mem.Report(ctx, "r1")
	if r.Status == content.ReportStatusResolved {
		t.Fatalf("report must not read as resolved: %+v", r)
	}
}

func TestDeleteReportedVideoWrongKind(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	store.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindUser, TargetID: "u1"})

	if err := w.DeleteReportedVideo(ctx, "r1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// flakyStore fails DeleteVideo for selected IDs while delegating everything
// else to the real store.
type flakyStore struct {
	content.Store
	failDelete map[string]error
}

func (f *flakyStore) DeleteVideo(ctx context.Context, id string) error {
	if err, ok := f.failDelete[id]; ok {
		return err
	}
	return f.Store.DeleteVideo(ctx, id)
}

func TestBanCreatorPartialVideoFailure(t *testing.T) {
	mem := content.NewMemoryStore(nil)
	ctx := context.Background()
	mem.InsertUser(ctx, content.UserAccount{ID: "u1"})
	for i := 1; i <= 3; i++ {
		mem.InsertVideo(ctx, content.Video{
			ID:        fmt.Sprintf("v%d", i),
			AuthorID:  "u1",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	store := &flakyStore{Store: mem, failDelete: map[string]error{"v2": errors.New("storage timeout")}}
	w := NewWorkflow(store, nil, audit.NewRecorder(audit.NewMemorySink()))

	res, err := w.BanCreator(ctx, "u1", "spam")
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !res.Banned {
		t.Fatal("ban flag must be set despite video failures")
	}
	if res.DeletedVideos != 2 {
		t.Fatalf("deleted = %d, want 2", res.DeletedVideos)
	}
	if len(res.Failures) != 1 || res.Failures[0].VideoID != "v2" {
		t.Fatalf("failures = %+v", res.Failures)
	}

	u, _ := mem.User(ctx, "u1")
	if !u.IsBanned || u.BanReason != "spam" {
		t.Fatalf("user after ban: %+v", u)
	}
	if _, err := mem.Video(ctx, "v2"); err != nil {
		t.Fatal("failed video should survive for manual cleanup")
	}
}

func TestBanCreatorMissingUser(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	if _, err := w.BanCreator(context.Background(), "ghost", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

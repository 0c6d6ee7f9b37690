package analytics

import (
	"context"
	"testing"
	"time"

	"nexchat.app/internal/content"
)

func TestOverview(t *testing.T) {
	store := content.NewMemoryStore(nil)
	ctx := context.Background()

	store.InsertUser(ctx, content.UserAccount{ID: "u1", Tokens: 100, CreatedAt: time.Now()})
	store.InsertUser(ctx, content.UserAccount{ID: "u2", Tokens: 50, IsBlocked: true, CreatedAt: time.Now()})
	store.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	store.InsertVideo(ctx, content.Video{ID: "v2", AuthorID: "u1", Flagged: true})
	store.InsertVideo(ctx, content.Video{ID: "v3", AuthorID: "u2"})
	store.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindVideo, TargetID: "v2"})
	store.InsertReport(ctx, content.Report{ID: "r2", Kind: content.ReportKindUser, TargetID: "u2", Status: content.ReportStatusResolved})
	store.SetMessageCount(4200)

	o, err := NewService(store).Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	want := Overview{
		TotalUsers:     2,
		BlockedUsers:   1,
		TotalVideos:    3,
		FlaggedVideos:  1,
		PendingReports: 1,
		TotalMessages:  4200,
		TokenSupply:    150,
	}
	if o != want {
		t.Fatalf("overview = %+v, want %+v", o, want)
	}
}

func TestOverviewEmptyStore(t *testing.T) {
	o, err := NewService(content.NewMemoryStore(nil)).Overview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if o != (Overview{}) {
		t.Fatalf("expected zero overview, got %+v", o)
	}
}

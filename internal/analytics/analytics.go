// Package analytics aggregates platform counters for the console overview.
package analytics

import (
	"context"
	"fmt"

	"nexchat.app/internal/content"
)

// Overview is a point-in-time snapshot of platform counters. Counts are
// computed from store reads and may lag concurrent writes slightly.
type Overview struct {
	TotalUsers     int   `json:"total_users"`
	BlockedUsers   int   `json:"blocked_users"`
	TotalVideos    int   `json:"total_videos"`
	FlaggedVideos  int   `json:"flagged_videos"`
	PendingReports int   `json:"pending_reports"`
	TotalMessages  int64 `json:"total_messages"`
	TokenSupply    int64 `json:"token_supply"`
}

// Service computes overview statistics from the content store.
type Service struct {
	store content.Store
}

func NewService(store content.Store) *Service {
	return &Service{store: store}
}

// Overview gathers all counters. Any store failure aborts the snapshot so a
// partial dashboard never renders as authoritative numbers.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var o Overview

	users, err := s.store.Users(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count users: %w", err)
	}
	o.TotalUsers = len(users)
	for _, u := range users {
		if u.IsBlocked {
			o.BlockedUsers++
		}
		o.TokenSupply += u.Tokens
	}

	videos, err := s.store.Videos(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count videos: %w", err)
	}
	o.TotalVideos = len(videos)
	for _, v := range videos {
		if v.Flagged {
			o.FlaggedVideos++
		}
	}

	pending, err := s.store.ReportsByStatus(ctx, content.ReportStatusPending)
	if err != nil {
		return Overview{}, fmt.Errorf("count reports: %w", err)
	}
	o.PendingReports = len(pending)

	o.TotalMessages, err = s.store.CountMessages(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count messages: %w", err)
	}
	return o, nil
}

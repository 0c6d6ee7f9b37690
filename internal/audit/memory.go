package audit

import (
	"context"
	"sync"
)

// MemorySink keeps events in process memory. Used by tests and by local
// development without Postgres.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

var _ Sink = (*MemorySink)(nil)

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *MemorySink) Recent(ctx context.Context, adminEmail string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.events[i]
		if adminEmail != "" && e.AdminEmail != adminEmail {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

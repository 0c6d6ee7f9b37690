// Package stream fans out store-change events to dashboard subscribers.
// Writes to the content store publish here, which is what keeps the
// console's real-time views current without polling.
package stream

import (
	"context"
	"sync"
	"time"
)

// Change kinds.
const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Collections that emit change events.
const (
	CollectionUsers   = "users"
	CollectionVideos  = "videos"
	CollectionReports = "reports"
	CollectionLedger  = "token_transactions"
)

// Event describes a single store mutation.
type Event struct {
	Kind       string    `json:"kind"`
	Collection string    `json:"collection"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stream fan-outs change events to all active subscribers (SSE clients and
// in-process observers).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The registration is owned by the caller: the channel is closed and
// removed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish delivers the event to every subscriber. Slow subscribers miss
// events rather than blocking the writer.
func (s *Stream) Publish(e Event) {
	if s == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

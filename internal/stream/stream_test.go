package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)
	if s.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.SubscriberCount())
	}

	s.Publish(Event{Kind: KindUpdate, Collection: CollectionUsers, EntityID: "u1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			if e.EntityID != "u1" || e.Timestamp.IsZero() {
				t.Fatalf("unexpected event: %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestCancelRemovesSubscription(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for s.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("subscription not removed after cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{Kind: KindDelete, Collection: CollectionVideos, EntityID: "v"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

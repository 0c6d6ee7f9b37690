package content

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"nexchat.app/internal/stream"
)

// MemoryStore is an in-process Store. Every write publishes a change event,
// mirroring the push-on-write feed of the hosted document store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]UserAccount
	videos   map[string]Video
	reports  map[string]Report
	messages int64
	changes  *stream.Stream
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. changes may be nil when no
// real-time feed is needed (most tests).
func NewMemoryStore(changes *stream.Stream) *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]UserAccount),
		videos:  make(map[string]Video),
		reports: make(map[string]Report),
		changes: changes,
	}
}

func (s *MemoryStore) publish(kind, collection, id, detail string) {
	s.changes.Publish(stream.Event{
		Kind:       kind,
		Collection: collection,
		EntityID:   id,
		Detail:     detail,
	})
}

// --- users ---

func (s *MemoryStore) Users(ctx context.Context) ([]UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) User(ctx context.Context, id string) (UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return UserAccount{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return UserAccount{}, ErrNotFound
}

func (s *MemoryStore) BlockedUsers(ctx context.Context) ([]UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UserAccount
	for _, u := range s.users {
		if u.IsBlocked {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) InsertUser(ctx context.Context, u UserAccount) error {
	if u.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	s.publish(stream.KindInsert, stream.CollectionUsers, u.ID, "")
	return nil
}

func (s *MemoryStore) SetUserBlocked(ctx context.Context, id string, blocked bool) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	u.IsBlocked = blocked
	s.users[id] = u
	s.mu.Unlock()
	s.publish(stream.KindUpdate, stream.CollectionUsers, id, "blocked")
	return nil
}

func (s *MemoryStore) SetUserBanned(ctx context.Context, id, reason string, at time.Time) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	u.IsBanned = true
	u.BanReason = reason
	s.users[id] = u
	s.mu.Unlock()
	s.publish(stream.KindUpdate, stream.CollectionUsers, id, "banned")
	return nil
}

func (s *MemoryStore) IncrementTokens(ctx context.Context, id string, delta int64) error {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	u.Tokens += delta
	s.users[id] = u
	s.mu.Unlock()
	s.publish(stream.KindUpdate, stream.CollectionUsers, id, "tokens")
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.users, id)
	s.mu.Unlock()
	s.publish(stream.KindDelete, stream.CollectionUsers, id, "")
	return nil
}

// --- videos ---

func (s *MemoryStore) Videos(ctx context.Context) ([]Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Video, 0, len(s.videos))
	for _, v := range s.videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Video(ctx context.Context, id string) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) VideosByAuthor(ctx context.Context, authorID string) ([]Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Video
	for _, v := range s.videos {
		if v.AuthorID == authorID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) InsertVideo(ctx context.Context, v Video) error {
	if v.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	s.videos[v.ID] = v
	s.mu.Unlock()
	s.publish(stream.KindInsert, stream.CollectionVideos, v.ID, "")
	return nil
}

func (s *MemoryStore) SetVideoFlagged(ctx context.Context, id, flaggedBy string, at time.Time) error {
	s.mu.Lock()
	v, ok := s.videos[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	v.Flagged = true
	v.FlaggedBy = flaggedBy
	v.FlaggedAt = &at
	s.videos[id] = v
	s.mu.Unlock()
	s.publish(stream.KindUpdate, stream.CollectionVideos, id, "flagged")
	return nil
}

func (s *MemoryStore) DeleteVideo(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.videos[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.videos, id)
	s.mu.Unlock()
	s.publish(stream.KindDelete, stream.CollectionVideos, id, "")
	return nil
}

// --- reports ---

func (s *MemoryStore) Reports(ctx context.Context) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Report(ctx context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) ReportsByStatus(ctx context.Context, status string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Report
	for _, r := range s.reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) InsertReport(ctx context.Context, r Report) error {
	if r.ID == "" {
		return ErrInvalidInput
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	s.mu.Lock()
	s.reports[r.ID] = r
	s.mu.Unlock()
	s.publish(stream.KindInsert, stream.CollectionReports, r.ID, "")
	return nil
}

func (s *MemoryStore) SetReportStatus(ctx context.Context, id, status, actionTaken string, at time.Time) error {
	s.mu.Lock()
	r, ok := s.reports[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	r.Status = status
	if actionTaken != "" {
		r.ActionTaken = actionTaken
	}
	r.UpdatedAt = &at
	s.reports[id] = r
	s.mu.Unlock()
	s.publish(stream.KindUpdate, stream.CollectionReports, id, status)
	return nil
}

// --- messages ---

func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages, nil
}

// SetMessageCount seeds the message counter for stats. Test and seed helper.
func (s *MemoryStore) SetMessageCount(n int64) {
	s.mu.Lock()
	s.messages = n
	s.mu.Unlock()
}

// Changes exposes the live feed this store publishes to. Nil when the store
// was built without one.
func (s *MemoryStore) Changes() *stream.Stream {
	return s.changes
}

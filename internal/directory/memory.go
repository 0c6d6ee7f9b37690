package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps admin records in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	admins map[string]Admin
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{admins: make(map[string]Admin)}
}

func (s *MemoryStore) Insert(ctx context.Context, a Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return ErrAlreadyExists
		}
	}
	s.admins[a.ID] = a
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id string) (Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return Admin{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return Admin{}, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.IsActive = active
	s.admins[id] = a
	return nil
}

func (s *MemoryStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.LastLogin = &at
	s.admins[id] = a
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		return ErrNotFound
	}
	delete(s.admins, id)
	return nil
}

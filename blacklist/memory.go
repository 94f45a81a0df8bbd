package blacklist

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a concurrent in-process [Store]. It backs tests and
// single-node deployments that run without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore describes the newmemorystore operation and its observable behavior.
//
// NewMemoryStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Insert(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.TokenID]; exists {
		return nil
	}
	s.entries[entry.TokenID] = entry
	return nil
}

func (s *MemoryStore) Find(_ context.Context, tokenID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[tokenID]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Delete(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, tokenID)
	return nil
}

func (s *MemoryStore) UpdateForEmail(_ context.Context, email string, now time.Time, reason, ip, userAgent string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, entry := range s.entries {
		if entry.Email != email || entry.Expired(now) {
			continue
		}
		entry.Reason = reason
		entry.IP = ip
		entry.UserAgent = userAgent
		s.entries[id] = entry
		count++
	}
	return count, nil
}

func (s *MemoryStore) UpdateForEmailAndType(_ context.Context, email, tokenType string, now time.Time, reason, ip, userAgent string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, entry := range s.entries {
		if entry.Email != email || entry.TokenType != tokenType || entry.Expired(now) {
			continue
		}
		entry.Reason = reason
		entry.IP = ip
		entry.UserAgent = userAgent
		s.entries[id] = entry
		count++
	}
	return count, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) FindValidForEmail(_ context.Context, email string, now time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, entry := range s.entries {
		if entry.Email == email && !entry.Expired(now) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	return out, nil
}

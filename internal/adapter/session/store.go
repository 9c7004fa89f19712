// Package session keeps short-lived conversation history in memory so
// clients can send just their new turn with a session id. Eviction is
// LRU; history is advisory and callers supplying explicit history
// always win.
package session

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"lexrag/internal/domain"
)

const DefaultCapacity = 512

type Store struct {
	cache *lru.Cache[string, []domain.Message]
}

// NewStore creates a store holding up to capacity sessions; zero or
// negative capacity uses DefaultCapacity.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, []domain.Message](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// History returns the stored conversation, or nil for an unknown or
// evicted session.
func (s *Store) History(sessionID string) []domain.Message {
	history, ok := s.cache.Get(sessionID)
	if !ok {
		return nil
	}
	// Callers append to what we hand out; copy so the stored slice
	// stays isolated.
	out := make([]domain.Message, len(history))
	copy(out, history)
	return out
}

// Append adds messages to a session's history, creating the session if
// needed.
func (s *Store) Append(sessionID string, messages ...domain.Message) {
	if sessionID == "" || len(messages) == 0 {
		return
	}
	history, _ := s.cache.Get(sessionID)
	updated := make([]domain.Message, 0, len(history)+len(messages))
	updated = append(updated, history...)
	updated = append(updated, messages...)
	s.cache.Add(sessionID, updated)
}

// Reset drops a session's history.
func (s *Store) Reset(sessionID string) {
	s.cache.Remove(sessionID)
}

// Len reports how many sessions are currently held.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Package session keeps each chat's pending action between two messages.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

// DefaultTTL bounds how long an unanswered prompt stays pending.
const DefaultTTL = time.Hour

var _ model.PendingStore = (*MemoryStore)(nil)

// MemoryStore keeps pending actions in process memory. It suits a single bot
// instance; state is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[int64]memEntry
}

type memEntry struct {
	action  model.PendingAction
	expires time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl (DefaultTTL
// when ttl is not positive).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[int64]memEntry),
	}
}

// Get returns the user's pending action, or the zero action when none is set.
func (s *MemoryStore) Get(_ context.Context, userID int64) (model.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[userID]
	if !ok {
		return model.PendingAction{}, nil
	}
	if s.now().After(e.expires) {
		delete(s.pending, userID)
		return model.PendingAction{}, nil
	}
	return e.action, nil
}

func (s *MemoryStore) Set(_ context.Context, userID int64, action model.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if action.State == model.PendingNone {
		delete(s.pending, userID)
		return nil
	}
	s.pending[userID] = memEntry{action: action, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()
	return nil
}

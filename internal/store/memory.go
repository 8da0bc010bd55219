package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amishk599/upwatch/internal/model"
)

var _ model.SubscriptionStore = (*MemoryStore)(nil)

// MemoryStore keeps subscriptions in process memory. It backs the one-shot
// check command, where nothing should be persisted, and tests.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[int64]string
	topics map[string]*memTopic
}

type memTopic struct {
	lastSeen    string
	updatedAt   time.Time
	subscribers map[int64]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]string),
		topics: make(map[string]*memTopic),
	}
}

func (s *MemoryStore) AllTopics(_ context.Context) ([]model.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]model.Topic, 0, len(s.topics))
	for name, t := range s.topics {
		topics = append(topics, model.Topic{
			Name:        name,
			LastSeen:    t.lastSeen,
			Subscribers: len(t.subscribers),
			UpdatedAt:   t.updatedAt,
		})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

func (s *MemoryStore) LastSeen(_ context.Context, topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[topic]; ok {
		return t.lastSeen, nil
	}
	return "", nil
}

func (s *MemoryStore) SetLastSeen(_ context.Context, topic, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.topics[topic]; ok {
		t.lastSeen = value
		t.updatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) Subscribers(_ context.Context, topic string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topic]
	if !ok {
		return nil, nil
	}
	ids := make([]int64, 0, len(t.subscribers))
	for id := range t.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) TopicExists(_ context.Context, topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.topics[topic]
	return ok, nil
}

func (s *MemoryStore) CreateTopic(_ context.Context, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createTopicLocked(topic)
	return nil
}

func (s *MemoryStore) createTopicLocked(topic string) *memTopic {
	t, ok := s.topics[topic]
	if !ok {
		t = &memTopic{updatedAt: time.Now(), subscribers: make(map[int64]struct{})}
		s.topics[topic] = t
	}
	return t
}

func (s *MemoryStore) DeleteTopicIfOrphaned(_ context.Context, topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topic]
	if !ok || len(t.subscribers) > 0 {
		return false, nil
	}
	delete(s.topics, topic)
	return true, nil
}

func (s *MemoryStore) AddSubscription(_ context.Context, user model.User, topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerUserLocked(user)
	t := s.createTopicLocked(topic)
	if _, ok := t.subscribers[user.ID]; ok {
		return false, nil
	}
	t.subscribers[user.ID] = struct{}{}
	return true, nil
}

func (s *MemoryStore) RemoveSubscription(_ context.Context, userID int64, topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[topic]
	if !ok {
		return false, nil
	}
	if _, ok := t.subscribers[userID]; !ok {
		return false, nil
	}
	delete(t.subscribers, userID)
	if len(t.subscribers) == 0 {
		delete(s.topics, topic)
	}
	return true, nil
}

func (s *MemoryStore) RegisterUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerUserLocked(user)
	return nil
}

// registerUserLocked keeps a known username when the new one is empty.
func (s *MemoryStore) registerUserLocked(user model.User) {
	if _, ok := s.users[user.ID]; !ok || user.Username != "" {
		s.users[user.ID] = user.Username
	}
}

func (s *MemoryStore) UserTopics(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name, t := range s.topics {
		if _, ok := t.subscribers[userID]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

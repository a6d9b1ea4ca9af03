// Package session holds per-conversation state. Each session is an
// independent unit: no mutable structure is shared across sessions, and
// state for distinct sessions may be read and written concurrently.
package session

import (
	"context"
	"sync"
	"time"

	"schedulai/models"
)

// Store persists ConversationState between dialogue turns. State lives for
// the TTL past its last update and is discarded on booking success, cancel,
// or idle expiry.
type Store interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationState, error)
	Set(ctx context.Context, sessionID string, state *models.ConversationState) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore is the default in-process store: a session map where each
// entry carries its own timestamp and the whole map is guarded for
// cross-session access. A janitor goroutine sweeps idle entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	state     *models.ConversationState
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Get returns the stored state, or nil when the session is unknown or
// expired. The caller gets a private copy; nothing it mutates is visible
// in the store until Set.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.state.Clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = &entry{
		state:     state.Clone(),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

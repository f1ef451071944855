package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexthire/server/internal/model"
)

// ErrNotCached is returned by a SessionStore that has no live state for the id
var ErrNotCached = errors.New("session not in live store")

// Live is the in-flight state of a session between turns
type Live struct {
	ID         uuid.UUID         `json:"id"`
	Owner      string            `json:"owner"`
	Kind       model.SessionKind `json:"kind"`
	Skills     []string          `json:"skills"`
	Role       string            `json:"role"`
	Experience string            `json:"experience"`
	Difficulty model.Difficulty  `json:"difficulty"`
	Question   string            `json:"question"`
	Skill      string            `json:"skill"`
	Turns      int               `json:"turns"`
}

// SessionStore holds live session state. Lock marks a session as evaluating;
// it reports false when another turn already holds it.
type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (Live, error)
	Save(ctx context.Context, live Live) error
	Delete(ctx context.Context, id uuid.UUID) error
	Lock(ctx context.Context, id uuid.UUID) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}

type memEntry struct {
	live     Live
	lastSeen time.Time
}

// MemoryStore keeps live sessions in process. Idle sessions are removed by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*memEntry
	busy    map[uuid.UUID]bool
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[uuid.UUID]*memEntry),
		busy:    make(map[uuid.UUID]bool),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (Live, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Live{}, ErrNotCached
	}
	e.lastSeen = s.now()
	return e.live, nil
}

func (s *MemoryStore) Save(_ context.Context, live Live) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[live.ID] = &memEntry{live: live, lastSeen: s.now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy[id] {
		return false, nil
	}
	s.busy[id] = true
	return true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.busy, id)
	return nil
}

// Sweep evicts sessions not touched for longer than idle and returns how many were removed.
// Sessions with a turn in flight are kept.
func (s *MemoryStore) Sweep(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	removed := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) && !s.busy[id] {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

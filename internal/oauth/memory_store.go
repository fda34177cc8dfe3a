package oauth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory FlowStore for single-instance deployments.
// Expiry is lazy on read; Sweep removes abandoned entries in bulk.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*FlowState

	// now is swappable for tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*FlowState),
		now:    time.Now,
	}
}

// Save stores a pending authorization under its state token.
func (s *MemoryStore) Save(_ context.Context, state *FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.states[cp.State] = &cp
	return nil
}

// Consume atomically removes and returns the entry for a state token.
// Expired entries are treated as not found even if still present.
func (s *MemoryStore) Consume(_ context.Context, state string) (*FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(s.states, state)

	if s.now().Sub(entry.CreatedAt) >= StateTTL {
		return nil, ErrStateNotFound
	}
	return entry, nil
}

// Sweep deletes all expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.states {
		if now.Sub(entry.CreatedAt) >= StateTTL {
			delete(s.states, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Len returns the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

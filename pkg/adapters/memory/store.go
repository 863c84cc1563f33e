package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
)

// Store implements ports.EventStore in memory.
// Safe for concurrent use.
type Store struct {
	events []domain.AnalyticsEvent
	mu     sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Append adds the event and trims the log to capacity.
func (s *Store) Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = domain.Retain(append(s.events, event), capacity)
	return nil
}

// List returns a copy of the log, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnalyticsEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

// DeleteBefore drops events at or before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.events)
	s.events = domain.Prune(s.events, cutoff)
	return before - len(s.events), nil
}

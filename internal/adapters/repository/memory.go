package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/pkg/logger"
)

// MemoryStore keeps rounds in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	rounds map[string]model.SavedRound
	closed bool
	logger logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{rounds: make(map[string]model.SavedRound), logger: o.logger}
}

// Save stores a copy of round.
func (s *MemoryStore) Save(ctx context.Context, round model.SavedRound) error {
	if err := validate(&round); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.rounds[round.ID]; ok {
		return fmt.Errorf("save %s: %w", round.ID, ErrDuplicateID)
	}
	s.rounds[round.ID] = copyRound(round)
	s.logger.Debug(ctx, "round stored", logger.String("round_id", round.ID))
	return nil
}

// List returns rounds ordered by SavedAt descending.
func (s *MemoryStore) List(_ context.Context) ([]model.SavedRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.SavedRound, 0, len(s.rounds))
	for _, r := range s.rounds {
		out = append(out, copyRound(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// Count returns the number of stored rounds.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.rounds), nil
}

// Clear removes every round.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	n := len(s.rounds)
	s.rounds = make(map[string]model.SavedRound)
	s.logger.Info(ctx, "rounds cleared", logger.Int("count", n))
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

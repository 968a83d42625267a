// Package repository persists saved rounds.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/jacktrack/internal/domain/model"
)

// RoundStore provides access to saved rounds.
type RoundStore interface {
	// Save stores an immutable round snapshot. Saving the same ID twice
	// returns ErrDuplicateID.
	Save(ctx context.Context, round model.SavedRound) error

	// List returns every saved round, most recent first.
	List(ctx context.Context) ([]model.SavedRound, error)

	// Count returns the number of saved rounds.
	Count(ctx context.Context) (int, error)

	// Clear deletes every saved round.
	Clear(ctx context.Context) error

	Close() error
}

func validate(round *model.SavedRound) error {
	if round.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRound)
	}
	if round.SavedAt.IsZero() {
		return fmt.Errorf("%w: missing saved_at", ErrInvalidRound)
	}
	return nil
}

func copyRound(r model.SavedRound) model.SavedRound {
	scores := make(map[int]int, len(r.Scores))
	for h, s := range r.Scores {
		scores[h] = s
	}
	r.Scores = scores
	return r
}

package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
)

var csvHeader = []string{
	"id", "player", "course", "saved_at", "holes_played",
	"total", "par", "relative", "average",
}

// ExportCSV writes every round in store as one CSV row followed by one
// column per hole up to the highest hole number played in any round.
// Unplayed holes are left empty.
func ExportCSV(ctx context.Context, store RoundStore, w io.Writer) (int, error) {
	rounds, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}

	maxHole := 0
	for _, r := range rounds {
		for h := range r.Scores {
			if h > maxHole {
				maxHole = h
			}
		}
	}

	cw := csv.NewWriter(w)
	header := append([]string(nil), csvHeader...)
	for h := 1; h <= maxHole; h++ {
		header = append(header, "h"+strconv.Itoa(h))
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, r := range rounds {
		if err := cw.Write(csvRow(r, maxHole)); err != nil {
			return 0, fmt.Errorf("write round %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush: %w", err)
	}
	return len(rounds), nil
}

func csvRow(r model.SavedRound, maxHole int) []string {
	row := []string{
		r.ID,
		r.PlayerName,
		r.CourseName,
		r.SavedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(r.Stats.HolesPlayed),
		strconv.Itoa(r.Stats.TotalScore),
		strconv.Itoa(r.Stats.TotalPar),
		strconv.Itoa(r.Stats.TotalScore - r.Stats.TotalPar),
		strconv.FormatFloat(r.Stats.AverageScore, 'f', 2, 64),
	}
	for h := 1; h <= maxHole; h++ {
		if s := r.Scores[h]; s > 0 {
			row = append(row, strconv.Itoa(s))
		} else {
			row = append(row, "")
		}
	}
	return row
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id TEXT PRIMARY KEY,
	player_name TEXT NOT NULL,
	course_name TEXT NOT NULL,
	saved_at TEXT NOT NULL,
	total_score INTEGER NOT NULL,
	total_par INTEGER NOT NULL,
	holes_played INTEGER NOT NULL,
	average_score REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS round_scores (
	round_id TEXT NOT NULL,
	hole_number INTEGER NOT NULL,
	strokes INTEGER NOT NULL,
	PRIMARY KEY (round_id, hole_number),
	FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS rounds_saved_at ON rounds(saved_at);
`

// savedAtLayout is fixed width so saved_at sorts as text in time order.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps rounds in a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	logger logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	o.logger.Info(ctx, "round store opened", logger.String("path", path))
	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// Save inserts the round and its per-hole scores in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, round model.SavedRound) error {
	if err := validate(&round); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (id, player_name, course_name, saved_at, total_score, total_par, holes_played, average_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.PlayerName, round.CourseName, round.SavedAt.UTC().Format(savedAtLayout),
		round.Stats.TotalScore, round.Stats.TotalPar, round.Stats.HolesPlayed, round.Stats.AverageScore,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("save %s: %w", round.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert round %s: %w", round.ID, err)
	}

	for hole, strokes := range round.Scores {
		if strokes <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO round_scores (round_id, hole_number, strokes) VALUES (?, ?, ?)",
			round.ID, hole, strokes,
		); err != nil {
			return fmt.Errorf("insert score %s/%d: %w", round.ID, hole, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", round.ID, err)
	}
	s.logger.Debug(ctx, "round stored", logger.String("round_id", round.ID))
	return nil
}

// List returns rounds ordered by saved_at descending.
func (s *SQLiteStore) List(ctx context.Context) ([]model.SavedRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_name, course_name, saved_at, total_score, total_par, holes_played, average_score
		 FROM rounds ORDER BY saved_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var (
		out   []model.SavedRound
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			r       model.SavedRound
			savedAt string
		)
		if err := rows.Scan(&r.ID, &r.PlayerName, &r.CourseName, &savedAt,
			&r.Stats.TotalScore, &r.Stats.TotalPar, &r.Stats.HolesPlayed, &r.Stats.AverageScore); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if r.SavedAt, err = time.Parse(savedAtLayout, savedAt); err != nil {
			return nil, fmt.Errorf("round %s saved_at: %w", r.ID, err)
		}
		r.Stats.RelativeToPar = r.Stats.TotalScore - r.Stats.TotalPar
		r.Scores = make(map[int]int)
		index[r.ID] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	scoreRows, err := s.db.QueryContext(ctx, "SELECT round_id, hole_number, strokes FROM round_scores")
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer scoreRows.Close()
	for scoreRows.Next() {
		var (
			id            string
			hole, strokes int
		)
		if err := scoreRows.Scan(&id, &hole, &strokes); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if i, ok := index[id]; ok {
			out[i].Scores[hole] = strokes
		}
	}
	if err := scoreRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// Count returns the number of stored rounds.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rounds").Scan(&n); err != nil {
		return 0, fmt.Errorf("count rounds: %w", err)
	}
	return n, nil
}

// Clear deletes every round and score.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM round_scores"); err != nil {
		return fmt.Errorf("delete scores: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM rounds")
	if err != nil {
		return fmt.Errorf("delete rounds: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info(ctx, "rounds cleared", logger.Int("count", int(n)))
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

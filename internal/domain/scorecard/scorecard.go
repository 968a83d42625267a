// Package scorecard accumulates one round's per-hole scores and derives
// aggregate statistics from them on demand.
package scorecard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// MaxStrokes is the highest accepted stroke count for a hole.
const MaxStrokes = 15

// Saver persists finished rounds.
type Saver interface {
	Save(ctx context.Context, round model.SavedRound) error
}

// Game is a copy of the round in progress.
type Game struct {
	PlayerName string      `json:"player_name"`
	Scores     map[int]int `json:"scores"`
	SavedAt    *time.Time  `json:"saved_at,omitempty"`
}

// Engine holds the scores of the round in progress. Strokes of 0 mean the
// hole is unplayed.
type Engine struct {
	mu      sync.RWMutex
	course  model.Course
	player  string
	scores  map[int]int
	savedAt *time.Time

	saver     Saver
	publisher notify.Publisher[types.Change]
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPlayerName sets the initial player name.
func WithPlayerName(name string) Option {
	return func(e *Engine) {
		e.player = name
	}
}

// WithPublisher sets where change notifications go.
func WithPublisher(p notify.Publisher[types.Change]) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine for course that hands saved rounds to saver.
func New(course model.Course, saver Saver, opts ...Option) *Engine {
	e := &Engine{
		course:    course,
		scores:    make(map[int]int, len(course.Holes)),
		saver:     saver,
		publisher: notify.Discard[types.Change]{},
		logger:    logger.Nop(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, h := range course.Holes {
		e.scores[h.Number] = 0
	}
	return e
}

// Course returns the loaded course.
func (e *Engine) Course() model.Course {
	return e.course
}

// SetScore records strokes for a hole, replacing any earlier value. Zero
// clears the hole.
func (e *Engine) SetScore(ctx context.Context, hole, strokes int) error {
	if strokes < 0 || strokes > MaxStrokes {
		metrics.RecordScoreRejected()
		return fmt.Errorf("hole %d: %d strokes outside 0..%d: %w", hole, strokes, MaxStrokes, types.ErrInvalidScore)
	}
	e.mu.Lock()
	if _, ok := e.scores[hole]; !ok {
		e.mu.Unlock()
		metrics.RecordScoreRejected()
		return fmt.Errorf("hole %d not on course %q: %w", hole, e.course.Name, types.ErrInvalidScore)
	}
	e.scores[hole] = strokes
	e.mu.Unlock()

	metrics.RecordScoreSet()
	e.logger.Debug(ctx, "score set", logger.Int("hole", hole), logger.Int("strokes", strokes))
	e.emit("score")
	return nil
}

// Aggregate computes the round statistics from the current scores.
func (e *Engine) Aggregate() model.Aggregate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aggregate()
}

// aggregate must be called with e.mu held.
func (e *Engine) aggregate() model.Aggregate {
	var a model.Aggregate
	for _, h := range e.course.Holes {
		s := e.scores[h.Number]
		if s == 0 {
			continue
		}
		a.TotalScore += s
		a.TotalPar += h.Par
		a.HolesPlayed++
	}
	a.RelativeToPar = a.TotalScore - a.TotalPar
	if a.HolesPlayed > 0 {
		a.AverageScore = float64(a.TotalScore) / float64(a.HolesPlayed)
	}
	return a
}

// Holes returns one row per course hole in course order.
func (e *Engine) Holes() []types.HoleView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.holes()
}

func (e *Engine) holes() []types.HoleView {
	out := make([]types.HoleView, 0, len(e.course.Holes))
	for _, h := range e.course.Holes {
		v := types.HoleView{Number: h.Number, Par: h.Par, Yardage: h.Yardage, Strokes: e.scores[h.Number]}
		if v.Strokes > 0 {
			v.RelativeToPar = v.Strokes - h.Par
		}
		out = append(out, v)
	}
	return out
}

// View returns the full scorecard view model under one lock.
func (e *Engine) View() types.ScorecardView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return types.ScorecardView{
		PlayerName: e.player,
		CourseName: e.course.Name,
		Holes:      e.holes(),
		Stats:      e.aggregate(),
	}
}

// Game returns a copy of the round in progress.
func (e *Engine) Game() Game {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g := Game{PlayerName: e.player, Scores: e.copyScores()}
	if e.savedAt != nil {
		t := *e.savedAt
		g.SavedAt = &t
	}
	return g
}

// SetPlayerName changes the player name.
func (e *Engine) SetPlayerName(name string) {
	e.mu.Lock()
	e.player = name
	e.mu.Unlock()
	e.emit("player")
}

// Save snapshots the round and hands it to the saver. An empty playerName
// keeps the current one. Nothing changes when the saver fails.
func (e *Engine) Save(ctx context.Context, playerName string) (model.SavedRound, error) {
	e.mu.Lock()
	stats := e.aggregate()
	if stats.TotalScore == 0 {
		e.mu.Unlock()
		return model.SavedRound{}, fmt.Errorf("save: %w", types.ErrEmptyRound)
	}
	name := e.player
	if playerName != "" {
		name = playerName
	}
	round := model.SavedRound{
		ID:         e.newID(),
		PlayerName: name,
		CourseName: e.course.Name,
		Scores:     e.copyScores(),
		Stats:      stats,
		SavedAt:    e.now().UTC(),
	}
	e.mu.Unlock()

	if e.saver != nil {
		if err := e.saver.Save(ctx, round); err != nil {
			metrics.RecordRoundSaveError()
			e.logger.Error(ctx, "failed to save round", logger.String("round_id", round.ID), logger.Error(err))
			return model.SavedRound{}, fmt.Errorf("save round %s: %w", round.ID, err)
		}
	}

	e.mu.Lock()
	at := round.SavedAt
	e.savedAt = &at
	e.player = name
	e.mu.Unlock()

	metrics.RecordRoundSaved()
	e.logger.Info(ctx, "round saved",
		logger.String("round_id", round.ID),
		logger.String("player", round.PlayerName),
		logger.Int("total", stats.TotalScore),
	)
	e.emit("saved")
	return round, nil
}

// Reset zeroes every score. The player name and course are kept.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	for h := range e.scores {
		e.scores[h] = 0
	}
	e.savedAt = nil
	e.mu.Unlock()

	e.logger.Info(ctx, "scorecard reset")
	e.emit("reset")
}

// copyScores returns played holes only. Must be called with e.mu held.
func (e *Engine) copyScores() map[int]int {
	out := make(map[int]int, len(e.scores))
	for h, s := range e.scores {
		if s > 0 {
			out[h] = s
		}
	}
	return out
}

func (e *Engine) emit(state string) {
	e.publisher.Publish(types.Change{Topic: types.TopicScorecard, State: state, At: e.now()})
}

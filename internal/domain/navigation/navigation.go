// Package navigation tracks the selected target ball and derives the live
// distance and bearing to it from the latest location fix.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/jacktrack/internal/domain/geo"
	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// BallResolver looks up tracked balls by id.
type BallResolver interface {
	Get(id string) (model.TrackedBall, bool)
}

// PositionSource returns the latest user fix. Err reports a terminal
// source failure such as a permission denial.
type PositionSource interface {
	Current() (model.Fix, bool)
	Err() error
}

// Session holds at most one target and the navigating flag. Distance is
// computed on every read and never cached.
type Session struct {
	mu         sync.Mutex
	targetID   string
	navigating bool

	balls     BallResolver
	position  PositionSource
	publisher notify.Publisher[types.Change]
	logger    logger.Logger
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithPublisher sets where change notifications go.
func WithPublisher(p notify.Publisher[types.Change]) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session reading balls from balls and fixes from position.
func New(balls BallResolver, position PositionSource, opts ...Option) *Session {
	s := &Session{
		balls:     balls,
		position:  position,
		publisher: notify.Discard[types.Change]{},
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectTarget selects a ball by id. An empty id clears the selection.
// Selecting a different ball stops navigation. A ball whose position has
// never been reported cannot be selected.
func (s *Session) SelectTarget(ctx context.Context, id string) error {
	s.mu.Lock()
	if id == "" {
		s.targetID = ""
		s.setNavigating(false)
		s.mu.Unlock()
		s.emit("cleared")
		return nil
	}
	if _, ok := s.locate(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("select %s: %w", id, types.ErrInvalidTarget)
	}
	if id != s.targetID {
		s.targetID = id
		s.setNavigating(false)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "target selected", logger.String("ball_id", id))
	s.emit("selected")
	return nil
}

// StartNavigating turns navigation on for the selected target.
func (s *Session) StartNavigating(ctx context.Context) error {
	s.mu.Lock()
	if s.targetID == "" {
		s.mu.Unlock()
		return fmt.Errorf("start navigating: %w", types.ErrNoTarget)
	}
	if _, ok := s.locate(s.targetID); !ok {
		id := s.targetID
		s.targetID = ""
		s.setNavigating(false)
		s.mu.Unlock()
		s.emit("cleared")
		return fmt.Errorf("start navigating to %s: %w", id, types.ErrInvalidTarget)
	}
	s.setNavigating(true)
	id := s.targetID
	s.mu.Unlock()

	s.logger.Info(ctx, "navigation started", logger.String("ball_id", id))
	s.emit("navigating")
	return nil
}

// StopNavigating turns navigation off and keeps the selection.
func (s *Session) StopNavigating(ctx context.Context) {
	s.mu.Lock()
	was := s.navigating
	s.setNavigating(false)
	s.mu.Unlock()

	if was {
		s.logger.Info(ctx, "navigation stopped")
		s.emit("stopped")
	}
}

// BallRemoved drops the selection when id is the current target.
func (s *Session) BallRemoved(id string) {
	s.mu.Lock()
	if id == "" || id != s.targetID {
		s.mu.Unlock()
		return
	}
	s.targetID = ""
	s.setNavigating(false)
	s.mu.Unlock()
	s.emit("cleared")
}

// Target returns the selected ball id and the navigating flag.
func (s *Session) Target() (string, bool) {
	s.mu.Lock()
	cleared := s.revalidate()
	id, on := s.targetID, s.navigating
	s.mu.Unlock()
	if cleared {
		s.emit("cleared")
	}
	return id, on
}

// CurrentDistance returns the distance in meters from the latest fix to the
// target ball.
func (s *Session) CurrentDistance(ctx context.Context) (float64, error) {
	target, fix, err := s.resolve()
	if err != nil {
		return 0, err
	}
	metrics.RecordDistanceComputed()
	return geo.Distance(fix.Position, *target.Position), nil
}

// Feed returns the navigation view model.
func (s *Session) Feed(ctx context.Context) types.NavigationFeed {
	target, fix, err := s.resolve()

	s.mu.Lock()
	feed := types.NavigationFeed{TargetID: s.targetID, Navigating: s.navigating}
	s.mu.Unlock()

	if err != nil {
		feed.Unavailable = err.Error()
		return feed
	}
	metrics.RecordDistanceComputed()
	d := geo.Distance(fix.Position, *target.Position)
	yd := geo.MetersToYards(d)
	b := geo.Bearing(fix.Position, *target.Position)
	feed.DistanceM, feed.DistanceYd, feed.BearingDeg = &d, &yd, &b
	return feed
}

func (s *Session) resolve() (model.TrackedBall, model.Fix, error) {
	s.mu.Lock()
	cleared := s.revalidate()
	id := s.targetID
	s.mu.Unlock()
	if cleared {
		s.emit("cleared")
	}

	if id == "" {
		return model.TrackedBall{}, model.Fix{}, types.ErrNoTarget
	}
	ball, ok := s.locate(id)
	if !ok {
		return model.TrackedBall{}, model.Fix{}, types.ErrNoTarget
	}
	fix, ok := s.position.Current()
	if !ok {
		if errors.Is(s.position.Err(), types.ErrLocationDenied) {
			return model.TrackedBall{}, model.Fix{}, types.ErrLocationDenied
		}
		return model.TrackedBall{}, model.Fix{}, types.ErrNoLocationFix
	}
	return ball, fix, nil
}

// locate returns the ball only when it exists and has a known position.
func (s *Session) locate(id string) (model.TrackedBall, bool) {
	b, ok := s.balls.Get(id)
	if !ok || b.Position == nil {
		return model.TrackedBall{}, false
	}
	return b, true
}

// revalidate clears a target that no longer resolves and reports whether it
// did. Must be called with s.mu held.
func (s *Session) revalidate() bool {
	if s.targetID == "" {
		return false
	}
	if _, ok := s.locate(s.targetID); ok {
		return false
	}
	s.targetID = ""
	s.setNavigating(false)
	return true
}

// setNavigating must be called with s.mu held.
func (s *Session) setNavigating(v bool) {
	s.navigating = v
	metrics.UpdateNavigationActive(v)
}

func (s *Session) emit(state string) {
	s.mu.Lock()
	id := s.targetID
	s.mu.Unlock()
	s.publisher.Publish(types.Change{Topic: types.TopicNavigation, ID: id, State: state, At: time.Now()})
}

package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// ErrInvalidFix is returned for fixes with out of range coordinates.
var ErrInvalidFix = errors.New("invalid location fix")

// Tracker holds the latest fix from a source or from pushed updates.
type Tracker struct {
	mu      sync.RWMutex
	current *model.Fix
	err     error

	publisher notify.Publisher[types.Change]
	logger    logger.Logger
	now       func() time.Time
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithPublisher sets where change notifications go.
func WithPublisher(p notify.Publisher[types.Change]) Option {
	return func(t *Tracker) {
		if p != nil {
			t.publisher = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker with no fix.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		publisher: notify.Discard[types.Change]{},
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run consumes src until ctx is done or the stream ends. A permission
// denial is recorded and returned without retry.
func (t *Tracker) Run(ctx context.Context, src Source) error {
	fixes, err := src.Stream(ctx)
	if err != nil {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		metrics.RecordLocationFix("source_error")
		if errors.Is(err, ErrPermissionDenied) {
			t.logger.Error(ctx, "location permission denied", logger.Error(err))
		} else {
			t.logger.Error(ctx, "location source failed", logger.Error(err))
		}
		t.publisher.Publish(types.Change{Topic: types.TopicLocation, State: "error", At: t.now()})
		return fmt.Errorf("location stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case fix, ok := <-fixes:
			if !ok {
				t.logger.Info(ctx, "location stream ended")
				return nil
			}
			if err := t.Update(fix); err != nil {
				t.logger.Debug(ctx, "fix dropped", logger.Error(err))
			}
		}
	}
}

// Update stores fix as the latest position.
func (t *Tracker) Update(fix model.Fix) error {
	if !fix.Position.Valid() {
		metrics.RecordLocationFix("rejected")
		return fmt.Errorf("%w: %.6f,%.6f", ErrInvalidFix, fix.Position.Latitude, fix.Position.Longitude)
	}
	if fix.At.IsZero() {
		fix.At = t.now()
	}
	t.mu.Lock()
	t.current = &fix
	t.mu.Unlock()

	metrics.RecordLocationFix("accepted")
	t.publisher.Publish(types.Change{Topic: types.TopicLocation, State: "fix", At: fix.At})
	return nil
}

// Current returns the latest fix, or false when none has arrived yet.
func (t *Tracker) Current() (model.Fix, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return model.Fix{}, false
	}
	metrics.UpdateLocationFixAge(t.now().Sub(t.current.At))
	return *t.current, true
}

// Err returns the terminal source error, if any.
func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

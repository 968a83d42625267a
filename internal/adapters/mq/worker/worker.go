// Package worker drains the event queue and applies each event to the
// domain, one at a time.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/jacktrack/internal/adapters/mq/queue"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// Applier applies a single event to the domain.
type Applier interface {
	Apply(ctx context.Context, e *queue.Event) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, e *queue.Event) error

// Apply calls f(ctx, e).
func (f ApplierFunc) Apply(ctx context.Context, e *queue.Event) error { return f(ctx, e) }

// Source defines how the worker receives events.
type Source interface {
	Dequeue(ctx context.Context) <-chan *queue.Event
}

// Worker is the single consumer of the event queue. Because there is only
// one, events are applied strictly in arrival order and never concurrently.
type Worker struct {
	source  Source
	applier Applier
	name    string

	applied  atomic.Int64
	rejected atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker reading from source and applying with applier.
func New(source Source, applier Applier, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		applier:  applier,
		name:     "applier",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes events until ctx is done, Shutdown is called or the source
// channel closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Warn(ctx, "event rejected", logger.Error(err))
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, e *queue.Event) error {
	start := time.Now()
	kind := string(e.Kind)

	if err := w.applier.Apply(ctx, e); err != nil {
		w.rejected.Add(1)
		metrics.RecordEventRejected(kind)
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply %s event %s: %w", kind, e.EventID, err)
	}

	w.applied.Add(1)
	metrics.RecordEventApplied(kind, float64(time.Since(start).Microseconds())/1000)
	return nil
}

// Applied returns the number of events applied successfully.
func (w *Worker) Applied() int64 { return w.applied.Load() }

// Rejected returns the number of events the applier refused.
func (w *Worker) Rejected() int64 { return w.rejected.Load() }

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker and waits for Run to return.
func (w *Worker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

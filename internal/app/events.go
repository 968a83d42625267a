package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// Submit validates a collaborator event and queues it for the worker.
// Events carrying an already seen EventID return ErrDuplicateEvent;
// events without one get a fresh id. A full queue releases the id so the
// caller can retry.
func (s *Service) Submit(ctx context.Context, e *model.DeviceEvent) error {
	if err := s.running(); err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("%w: nil event", types.ErrInvalidEvent)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidEvent, err)
	}

	ev := *e
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	metrics.RecordEventReceived(string(ev.Kind))

	if s.deduper.SeenAndRecord(ctx, ev.EventID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping", logger.String("eventID", ev.EventID))
		return types.ErrDuplicateEvent
	}
	if err := s.queue.Enqueue(ctx, &ev); err != nil {
		s.deduper.Unrecord(ctx, ev.EventID)
		return fmt.Errorf("enqueue %s event: %w", ev.Kind, err)
	}
	return nil
}

// apply runs on the worker goroutine, one event at a time.
func (s *Service) apply(ctx context.Context, e *model.DeviceEvent) error {
	switch e.Kind {
	case model.KindDiscovery:
		if !s.registry.ApplyDiscovery(ctx, e) {
			s.logger.Debug(ctx, "discovery outside scan ignored", logger.String("ball_id", e.BallID))
		}
	case model.KindTelemetry:
		s.registry.ApplyTelemetry(ctx, e.BallID, e.Battery, e.Signal)
	case model.KindConnected:
		s.disarm(e.BallID)
		return s.stale(ctx, e, s.registry.ConfirmConnected(ctx, e.BallID))
	case model.KindConnectFailed:
		s.disarm(e.BallID)
		return s.stale(ctx, e, s.registry.ConnectFailed(ctx, e.BallID))
	case model.KindDisconnected:
		return s.stale(ctx, e, s.registry.ConfirmDisconnected(ctx, e.BallID))
	case model.KindLocation:
		return s.tracker.Update(*e.Fix)
	default:
		return fmt.Errorf("%w: kind %q", types.ErrInvalidEvent, e.Kind)
	}
	return nil
}

// stale drops confirmations that no longer match the ball's state.
func (s *Service) stale(ctx context.Context, e *model.DeviceEvent, err error) error {
	if errors.Is(err, registry.ErrInvalidTransition) || errors.Is(err, registry.ErrUnknownBall) {
		s.logger.Debug(ctx, "stale confirmation ignored",
			logger.String("ball_id", e.BallID),
			logger.String("kind", string(e.Kind)),
			logger.Error(err),
		)
		return nil
	}
	return err
}

// arm schedules a connect_failed report for id after the connect timeout.
func (s *Service) arm(id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if t, ok := s.watchdogs[id]; ok {
		t.Stop()
	}
	s.watchdogs[id] = time.AfterFunc(s.connectTimeout, func() {
		s.watchMu.Lock()
		delete(s.watchdogs, id)
		s.watchMu.Unlock()
		s.logger.Warn(s.runCtx, "connection timed out", logger.String("ball_id", id), logger.Duration("timeout", s.connectTimeout))
		s.report(model.KindConnectFailed, id)
	})
}

func (s *Service) disarm(id string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if t, ok := s.watchdogs[id]; ok {
		t.Stop()
		delete(s.watchdogs, id)
	}
}

// report submits a connection outcome on behalf of a collaborator.
func (s *Service) report(kind model.EventKind, id string) {
	e := &model.DeviceEvent{Kind: kind, BallID: id, TS: time.Now()}
	if err := s.Submit(s.runCtx, e); err != nil && !errors.Is(err, types.ErrNotStarted) {
		s.logger.Warn(s.runCtx, "event dropped", logger.String("ball_id", id), logger.String("kind", string(kind)), logger.Error(err))
	}
}

// Package service composes the registry, navigation, scorecard and
// location components behind the operations exposed by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/jacktrack/internal/adapters/ble"
	"github.com/okian/jacktrack/internal/adapters/course"
	"github.com/okian/jacktrack/internal/adapters/location"
	eventqueue "github.com/okian/jacktrack/internal/adapters/mq/queue"
	"github.com/okian/jacktrack/internal/adapters/mq/worker"
	"github.com/okian/jacktrack/internal/adapters/repository"
	"github.com/okian/jacktrack/internal/domain/dedupe"
	"github.com/okian/jacktrack/internal/domain/geo"
	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/navigation"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/internal/domain/scorecard"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Service owns every piece of round state and the collaborators that
// feed it.
type Service struct {
	mu sync.RWMutex

	// Core components
	hub       *notify.Hub[types.Change]
	registry  *registry.Registry
	nav       *navigation.Session
	scorecard *scorecard.Engine
	tracker   *location.Tracker
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	worker    *worker.Worker
	store     repository.RoundStore
	scanner   ble.Scanner
	connector ble.Connector

	// Configuration
	course         model.Course
	radio          RadioFactory
	locationSource location.Source
	queueSize      int
	dedupeSize     int
	connectTimeout time.Duration
	stopPolicy     registry.StopPolicy
	playerName     string

	// State
	started   bool
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	watchMu   sync.Mutex
	watchdogs map[string]*time.Timer

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:      4096,
		dedupeSize:     50_000,
		connectTimeout: ble.DefaultConnectTimeout,
		stopPolicy:     registry.StopMarkLost,
		watchdogs:      make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the event worker and the
// configured collaborators.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := course.Validate(s.course); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting jacktrack service...", logger.String("course", s.course.Name))

	s.hub = notify.NewHub[types.Change]()
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("store")))
	}
	s.registry = registry.New(
		registry.WithStopPolicy(s.stopPolicy),
		registry.WithPublisher(s.hub),
		registry.WithLogger(s.logger.Named("registry")),
	)
	s.tracker = location.NewTracker(
		location.WithPublisher(s.hub),
		location.WithLogger(s.logger.Named("location")),
	)
	s.nav = navigation.New(s.registry, s.tracker,
		navigation.WithPublisher(s.hub),
		navigation.WithLogger(s.logger.Named("navigation")),
	)
	s.registry.OnRemove(s.nav.BallRemoved)
	s.scorecard = scorecard.New(s.course, s.store,
		scorecard.WithPlayerName(s.playerName),
		scorecard.WithPublisher(s.hub),
		scorecard.WithLogger(s.logger.Named("scorecard")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.worker = worker.New(s.queue, worker.ApplierFunc(s.apply),
		worker.WithName("events"),
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Run(s.runCtx)
	}()

	if s.radio != nil {
		s.scanner, s.connector = s.radio(s)
	}
	if s.locationSource != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tracker.Run(s.runCtx, s.locationSource); err != nil {
				s.logger.Error(s.runCtx, "location source stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "jacktrack service started",
		logger.Int("holes", len(s.course.Holes)),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("connectTimeout", s.connectTimeout),
		logger.Bool("radio", s.radio != nil),
		logger.Bool("locationSource", s.locationSource != nil),
	)
	return nil
}

// Stop gracefully shuts down the service. Operations fail with
// types.ErrNotStarted once Stop begins.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping jacktrack service...")

	if s.scanner != nil {
		s.scanner.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker shutdown", logger.Error(err))
	}

	s.cancel()
	s.wg.Wait()

	s.watchMu.Lock()
	for id, t := range s.watchdogs {
		t.Stop()
		delete(s.watchdogs, id)
	}
	s.watchMu.Unlock()

	_ = s.queue.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	s.hub.Close()

	s.logger.Info(ctx, "jacktrack service stopped")
}

// running returns nil when the service accepts operations.
func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.ErrNotStarted
	}
	return nil
}

// Subscribe returns change notifications until ctx is done.
func (s *Service) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx), nil
}

// --- balls ---

// Balls returns the registry partitioned for display.
func (s *Service) Balls(_ context.Context) (types.BallsView, error) {
	if err := s.running(); err != nil {
		return types.BallsView{}, err
	}
	return s.registry.Snapshot(), nil
}

// Ball returns one tracked ball.
func (s *Service) Ball(_ context.Context, id string) (model.TrackedBall, error) {
	if err := s.running(); err != nil {
		return model.TrackedBall{}, err
	}
	b, ok := s.registry.Get(id)
	if !ok {
		return model.TrackedBall{}, fmt.Errorf("ball %s: %w", id, registry.ErrUnknownBall)
	}
	return b, nil
}

// StartScan opens a scan session and starts the scanner, if any.
func (s *Service) StartScan(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	s.registry.StartScan(ctx)
	if s.scanner == nil {
		return nil
	}
	if err := s.scanner.Start(s.runCtx); err != nil {
		s.registry.StopScan(ctx)
		metrics.RecordErrorByComponent("ble", "scan_start")
		return fmt.Errorf("start scanner: %w", err)
	}
	return nil
}

// StopScan stops the scanner and closes the scan session. Events already
// queued are applied against the closed session and ignored.
func (s *Service) StopScan(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	if s.scanner != nil {
		s.scanner.Stop()
	}
	s.registry.StopScan(ctx)
	return nil
}

// Connect starts a connection attempt. The attempt resolves through a
// connected or connect_failed event, or through the connect timeout.
func (s *Service) Connect(ctx context.Context, id string) (model.ConnectionState, error) {
	if err := s.running(); err != nil {
		return 0, err
	}
	state, started, err := s.registry.BeginConnect(ctx, id)
	if err != nil || !started {
		return state, err
	}

	s.arm(id)
	if s.connector != nil {
		if err := s.connector.Connect(s.runCtx, id); err != nil {
			s.logger.Warn(ctx, "connect attempt failed", logger.String("ball_id", id), logger.Error(err))
			metrics.RecordErrorByComponent("ble", "connect")
			s.report(model.KindConnectFailed, id)
		}
	}
	return state, nil
}

// Disconnect closes a connection. Without a connector the disconnect is
// confirmed immediately.
func (s *Service) Disconnect(ctx context.Context, id string) (model.ConnectionState, error) {
	if err := s.running(); err != nil {
		return 0, err
	}
	state, err := s.registry.Disconnect(ctx, id)
	if err != nil || state != model.StateDisconnecting {
		return state, err
	}
	if s.connector == nil {
		s.report(model.KindDisconnected, id)
		return state, nil
	}
	if err := s.connector.Disconnect(s.runCtx, id); err != nil {
		s.logger.Warn(ctx, "disconnect failed", logger.String("ball_id", id), logger.Error(err))
		s.report(model.KindDisconnected, id)
	}
	return state, nil
}

// RemoveBall forgets a ball, closing its link first when connected.
func (s *Service) RemoveBall(ctx context.Context, id string) error {
	if err := s.running(); err != nil {
		return err
	}
	b, ok := s.registry.Get(id)
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	s.disarm(id)
	if ok && b.State == model.StateConnected && s.connector != nil {
		if err := s.connector.Disconnect(s.runCtx, id); err != nil {
			s.logger.Debug(ctx, "disconnect on remove", logger.String("ball_id", id), logger.Error(err))
		}
	}
	return nil
}

// --- navigation ---

// Navigation returns the live navigation feed.
func (s *Service) Navigation(ctx context.Context) (types.NavigationFeed, error) {
	if err := s.running(); err != nil {
		return types.NavigationFeed{}, err
	}
	return s.nav.Feed(ctx), nil
}

// SelectTarget selects, or with an empty id clears, the navigation target.
func (s *Service) SelectTarget(ctx context.Context, id string) error {
	if err := s.running(); err != nil {
		return err
	}
	return s.nav.SelectTarget(ctx, id)
}

// StartNavigating turns navigation on for the selected target.
func (s *Service) StartNavigating(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	return s.nav.StartNavigating(ctx)
}

// StopNavigating turns navigation off and keeps the selection.
func (s *Service) StopNavigating(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	s.nav.StopNavigating(ctx)
	return nil
}

// --- scorecard ---

// Scorecard returns the round in progress.
func (s *Service) Scorecard(_ context.Context) (types.ScorecardView, error) {
	if err := s.running(); err != nil {
		return types.ScorecardView{}, err
	}
	return s.scorecard.View(), nil
}

// SetScore records strokes for a hole; zero clears it.
func (s *Service) SetScore(ctx context.Context, hole, strokes int) error {
	if err := s.running(); err != nil {
		return err
	}
	return s.scorecard.SetScore(ctx, hole, strokes)
}

// SetPlayerName renames the player of the round in progress.
func (s *Service) SetPlayerName(_ context.Context, name string) error {
	if err := s.running(); err != nil {
		return err
	}
	s.scorecard.SetPlayerName(name)
	return nil
}

// SaveRound persists the round in progress.
func (s *Service) SaveRound(ctx context.Context, playerName string) (model.SavedRound, error) {
	if err := s.running(); err != nil {
		return model.SavedRound{}, err
	}
	round, err := s.scorecard.Save(ctx, playerName)
	if err != nil {
		return model.SavedRound{}, err
	}
	s.hub.Publish(types.Change{Topic: types.TopicRounds, ID: round.ID, State: "saved", At: time.Now()})
	return round, nil
}

// ResetRound clears every score.
func (s *Service) ResetRound(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	s.scorecard.Reset(ctx)
	return nil
}

// --- rounds ---

// Rounds lists saved rounds, most recent first.
func (s *Service) Rounds(ctx context.Context) ([]model.SavedRound, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// ExportRounds writes saved rounds to w as CSV.
func (s *Service) ExportRounds(ctx context.Context, w io.Writer) (int, error) {
	if err := s.running(); err != nil {
		return 0, err
	}
	return repository.ExportCSV(ctx, s.store, w)
}

// ClearRounds deletes every saved round.
func (s *Service) ClearRounds(ctx context.Context) error {
	if err := s.running(); err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.hub.Publish(types.Change{Topic: types.TopicRounds, State: "cleared", At: time.Now()})
	return nil
}

// --- course ---

// Course returns the loaded course.
func (s *Service) Course(_ context.Context) (model.Course, error) {
	if err := s.running(); err != nil {
		return model.Course{}, err
	}
	return s.scorecard.Course(), nil
}

// HoleDistance returns the distance and bearing from the current fix to
// the pin of hole n.
func (s *Service) HoleDistance(_ context.Context, n int) (types.HoleDistance, error) {
	if err := s.running(); err != nil {
		return types.HoleDistance{}, err
	}
	hole, ok := s.course.Hole(n)
	if !ok {
		return types.HoleDistance{}, fmt.Errorf("hole %d: %w", n, types.ErrUnknownHole)
	}
	if hole.Pin == nil {
		return types.HoleDistance{}, fmt.Errorf("hole %d: %w", n, types.ErrNoPin)
	}
	fix, err := s.currentFix()
	if err != nil {
		return types.HoleDistance{}, err
	}
	d := geo.Distance(fix.Position, *hole.Pin)
	metrics.RecordDistanceComputed()
	return types.HoleDistance{
		Hole:       n,
		DistanceM:  d,
		DistanceYd: geo.MetersToYards(d),
		BearingDeg: geo.Bearing(fix.Position, *hole.Pin),
	}, nil
}

// Location returns the latest fix. Without one it returns
// types.ErrLocationDenied when the source was refused access and
// types.ErrNoLocationFix otherwise.
func (s *Service) Location(_ context.Context) (model.Fix, error) {
	if err := s.running(); err != nil {
		return model.Fix{}, err
	}
	return s.currentFix()
}

func (s *Service) currentFix() (model.Fix, error) {
	if fix, ok := s.tracker.Current(); ok {
		return fix, nil
	}
	if err := s.tracker.Err(); errors.Is(err, types.ErrLocationDenied) {
		return model.Fix{}, types.ErrLocationDenied
	}
	return model.Fix{}, types.ErrNoLocationFix
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":    s.started,
		"course":     s.course.Name,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	view := s.registry.Snapshot()
	agg := s.scorecard.Aggregate()
	_, hasFix := s.tracker.Current()
	target, navigating := s.nav.Target()

	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	stats["eventsApplied"] = s.worker.Applied()
	stats["eventsRejected"] = s.worker.Rejected()
	stats["scanning"] = view.Scanning
	stats["ballsConnected"] = len(view.Connected)
	stats["ballsAvailable"] = len(view.Available)
	stats["target"] = target
	stats["navigating"] = navigating
	stats["locationFix"] = hasFix
	if err := s.tracker.Err(); err != nil {
		stats["locationError"] = err.Error()
	}
	stats["holesPlayed"] = agg.HolesPlayed
	stats["totalScore"] = agg.TotalScore
	stats["subscribers"] = s.hub.Subscribers()
	if n, err := s.store.Count(ctx); err == nil {
		stats["roundsSaved"] = n
	}

	metrics.UpdateQueueSize(queueLen)
	return stats
}

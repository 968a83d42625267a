// Package registry owns the set of tracked balls, their connection state
// machine and the scan session.
//
// Allowed transitions:
//
//	Discovered, Lost -> Connecting        (Connect)
//	Connecting       -> Connected         (ConfirmConnected)
//	Connecting       -> Lost              (ConnectFailed)
//	Connected        -> Disconnecting     (Disconnect)
//	Disconnecting    -> Discovered        (ConfirmDisconnected)
//	Connected        -> Lost              (ConfirmDisconnected, link dropped)
//	Lost             -> Discovered        (re-sighted while scanning)
//	Discovered       -> Lost              (scan stop, mark_lost policy)
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// Session describes the current or most recent scan.
type Session struct {
	Active     bool      `json:"active"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	Discovered []string  `json:"discovered"`
}

type entry struct {
	ball          model.TrackedBall
	everConnected bool
}

// Registry maps ball ids to tracked balls. All methods are safe for
// concurrent use; every mutation is applied under a single lock so readers
// never observe a partially updated ball.
type Registry struct {
	mu         sync.RWMutex
	balls      map[string]*entry
	order      []string
	scanning   bool
	session    Session
	sessionSet map[string]struct{}
	removeFns  []func(id string)

	policy    StopPolicy
	publisher notify.Publisher[types.Change]
	logger    logger.Logger
	now       func() time.Time
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		balls:      make(map[string]*entry),
		sessionSet: make(map[string]struct{}),
		policy:     StopMarkLost,
		publisher:  notify.Discard[types.Change]{},
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnRemove registers fn to be called after a ball is removed.
func (r *Registry) OnRemove(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFns = append(r.removeFns, fn)
}

// StartScan opens a scan session. Calling it while scanning is a no-op.
func (r *Registry) StartScan(ctx context.Context) {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return
	}
	r.scanning = true
	r.session = Session{Active: true, StartedAt: r.now()}
	r.sessionSet = make(map[string]struct{})
	r.mu.Unlock()

	metrics.UpdateScanActive(true)
	r.logger.Info(ctx, "scan started")
	r.emit(types.Change{Topic: types.TopicScan, State: "active"})
}

// StopScan closes the scan session. Connected balls are untouched; under
// StopMarkLost, Discovered balls that never connected become Lost.
func (r *Registry) StopScan(ctx context.Context) {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return
	}
	r.scanning = false
	r.session.Active = false

	changes := []types.Change{{Topic: types.TopicScan, State: "inactive"}}
	if r.policy == StopMarkLost {
		for _, id := range r.order {
			e := r.balls[id]
			if e.ball.State == model.StateDiscovered && !e.everConnected {
				changes = append(changes, r.setState(e, model.StateLost))
			}
		}
	}
	r.updateStateGauges()
	r.mu.Unlock()

	metrics.UpdateScanActive(false)
	r.logger.Info(ctx, "scan stopped", logger.Int("marked_lost", len(changes)-1))
	r.emit(changes...)
}

// Scanning reports whether a scan session is active.
func (r *Registry) Scanning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanning
}

// Session returns a copy of the current scan session.
func (r *Registry) Session() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.session
	s.Discovered = append([]string(nil), r.session.Discovered...)
	return s
}

// ApplyDiscovery records a sighting. It returns false without changing
// anything when no scan is active.
func (r *Registry) ApplyDiscovery(ctx context.Context, ev *model.DeviceEvent) bool {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return false
	}
	now := r.now()
	seen := ev.TS
	if seen.IsZero() {
		seen = now
	}

	var changes []types.Change
	e, ok := r.balls[ev.BallID]
	if !ok {
		e = &entry{ball: model.TrackedBall{
			ID:           ev.BallID,
			Name:         ev.Name,
			State:        model.StateDiscovered,
			DiscoveredAt: now,
		}}
		r.balls[ev.BallID] = e
		r.order = append(r.order, ev.BallID)
		changes = append(changes, r.change(e))
	} else if e.ball.State == model.StateLost {
		changes = append(changes, r.setState(e, model.StateDiscovered))
	}
	if ev.Name != "" {
		e.ball.Name = ev.Name
	}
	if ev.Position != nil {
		p := *ev.Position
		e.ball.Position = &p
	}
	if ev.Battery != nil {
		e.ball.BatteryLevel = clampBattery(*ev.Battery)
	}
	e.ball.SignalStrength = ev.Signal
	e.ball.LastSeen = seen

	if _, inSession := r.sessionSet[ev.BallID]; !inSession {
		r.sessionSet[ev.BallID] = struct{}{}
		r.session.Discovered = append(r.session.Discovered, ev.BallID)
	}
	if len(changes) == 0 {
		changes = append(changes, r.change(e))
	}
	r.updateStateGauges()
	r.mu.Unlock()

	if !ok {
		r.logger.Debug(ctx, "ball discovered",
			logger.String("ball_id", ev.BallID),
			logger.Int("signal", ev.Signal),
		)
	}
	r.emit(changes...)
	return true
}

// ApplyTelemetry updates battery and signal in place without touching the
// connection state. A nil battery keeps the last known level. Unknown ids
// are ignored and false is returned.
func (r *Registry) ApplyTelemetry(ctx context.Context, id string, battery *int, signal int) bool {
	r.mu.Lock()
	e, ok := r.balls[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug(ctx, "telemetry for unknown ball ignored", logger.String("ball_id", id))
		return false
	}
	if battery != nil {
		e.ball.BatteryLevel = clampBattery(*battery)
	}
	e.ball.SignalStrength = signal
	e.ball.LastSeen = r.now()
	c := r.change(e)
	r.mu.Unlock()

	metrics.RecordTelemetryUpdate()
	r.emit(c)
	return true
}

// Connect starts a connection attempt. Connected and Connecting balls are
// returned unchanged.
func (r *Registry) Connect(ctx context.Context, id string) (model.ConnectionState, error) {
	s, _, err := r.BeginConnect(ctx, id)
	return s, err
}

// BeginConnect is Connect that also reports whether this call moved the
// ball to Connecting. Exactly one of several concurrent callers sees true.
func (r *Registry) BeginConnect(ctx context.Context, id string) (model.ConnectionState, bool, error) {
	r.mu.Lock()
	e, ok := r.balls[id]
	if !ok {
		r.mu.Unlock()
		return 0, false, fmt.Errorf("connect %s: %w", id, ErrUnknownBall)
	}
	switch e.ball.State {
	case model.StateConnected, model.StateConnecting:
		s := e.ball.State
		r.mu.Unlock()
		return s, false, nil
	case model.StateDiscovered, model.StateLost:
		c := r.setState(e, model.StateConnecting)
		r.updateStateGauges()
		r.mu.Unlock()
		r.logger.Info(ctx, "connecting", logger.String("ball_id", id))
		r.emit(c)
		return model.StateConnecting, true, nil
	default:
		s := e.ball.State
		r.mu.Unlock()
		return s, false, fmt.Errorf("connect %s from %s: %w", id, s, ErrInvalidTransition)
	}
}

// ConfirmConnected completes a connection attempt.
func (r *Registry) ConfirmConnected(ctx context.Context, id string) error {
	return r.confirm(ctx, id, "confirm connected", func(e *entry) (model.ConnectionState, bool) {
		if e.ball.State != model.StateConnecting {
			return 0, false
		}
		e.everConnected = true
		return model.StateConnected, true
	})
}

// ConnectFailed moves a connecting ball to Lost. A connect timeout is
// reported this way rather than as an error.
func (r *Registry) ConnectFailed(ctx context.Context, id string) error {
	return r.confirm(ctx, id, "connect failed", func(e *entry) (model.ConnectionState, bool) {
		if e.ball.State != model.StateConnecting {
			return 0, false
		}
		return model.StateLost, true
	})
}

// Disconnect starts a disconnect. It is a no-op unless the ball is Connected.
func (r *Registry) Disconnect(ctx context.Context, id string) (model.ConnectionState, error) {
	r.mu.Lock()
	e, ok := r.balls[id]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("disconnect %s: %w", id, ErrUnknownBall)
	}
	if e.ball.State != model.StateConnected {
		s := e.ball.State
		r.mu.Unlock()
		return s, nil
	}
	c := r.setState(e, model.StateDisconnecting)
	r.updateStateGauges()
	r.mu.Unlock()

	r.logger.Info(ctx, "disconnecting", logger.String("ball_id", id))
	r.emit(c)
	return model.StateDisconnecting, nil
}

// ConfirmDisconnected completes a disconnect. An unsolicited disconnect of
// a Connected ball moves it to Lost.
func (r *Registry) ConfirmDisconnected(ctx context.Context, id string) error {
	return r.confirm(ctx, id, "confirm disconnected", func(e *entry) (model.ConnectionState, bool) {
		switch e.ball.State {
		case model.StateDisconnecting:
			return model.StateDiscovered, true
		case model.StateConnected:
			return model.StateLost, true
		default:
			return 0, false
		}
	})
}

func (r *Registry) confirm(ctx context.Context, id, op string, next func(*entry) (model.ConnectionState, bool)) error {
	r.mu.Lock()
	e, ok := r.balls[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s %s: %w", op, id, ErrUnknownBall)
	}
	from := e.ball.State
	to, ok := next(e)
	if !ok {
		r.mu.Unlock()
		r.logger.Warn(ctx, "stale confirmation ignored",
			logger.String("ball_id", id),
			logger.String("op", op),
			logger.String("state", from.String()),
		)
		return fmt.Errorf("%s %s from %s: %w", op, id, from, ErrInvalidTransition)
	}
	c := r.setState(e, to)
	r.updateStateGauges()
	r.mu.Unlock()

	r.logger.Info(ctx, "ball state changed",
		logger.String("ball_id", id),
		logger.String("from", from.String()),
		logger.String("to", to.String()),
	)
	r.emit(c)
	return nil
}

// Remove deletes a ball. It is the only way a ball leaves the registry.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.balls[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("remove %s: %w", id, ErrUnknownBall)
	}
	delete(r.balls, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.updateStateGauges()
	hooks := append([]func(string){}, r.removeFns...)
	r.mu.Unlock()

	r.logger.Info(ctx, "ball removed", logger.String("ball_id", id))
	for _, fn := range hooks {
		fn(id)
	}
	r.emit(types.Change{Topic: types.TopicBall, ID: id, State: "removed"})
	return nil
}

// Get returns a copy of the ball with the given id.
func (r *Registry) Get(id string) (model.TrackedBall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.balls[id]
	if !ok {
		return model.TrackedBall{}, false
	}
	return e.ball.Clone(), true
}

// All returns every ball in discovery order.
func (r *Registry) All() []model.TrackedBall {
	return r.filter(func(model.ConnectionState) bool { return true })
}

// ConnectedBalls returns Connected balls in discovery order.
func (r *Registry) ConnectedBalls() []model.TrackedBall {
	return r.filter(func(s model.ConnectionState) bool { return s == model.StateConnected })
}

// AvailableBalls returns every ball that is not Connected, in discovery order.
func (r *Registry) AvailableBalls() []model.TrackedBall {
	return r.filter(func(s model.ConnectionState) bool { return s != model.StateConnected })
}

// Len returns the number of known balls.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.balls)
}

// Snapshot returns the partitioned view under one read lock.
func (r *Registry) Snapshot() types.BallsView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := types.BallsView{
		Scanning:  r.scanning,
		Connected: []model.TrackedBall{},
		Available: []model.TrackedBall{},
	}
	for _, id := range r.order {
		b := r.balls[id].ball.Clone()
		if b.State == model.StateConnected {
			v.Connected = append(v.Connected, b)
		} else {
			v.Available = append(v.Available, b)
		}
	}
	return v
}

func (r *Registry) filter(keep func(model.ConnectionState) bool) []model.TrackedBall {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TrackedBall, 0, len(r.order))
	for _, id := range r.order {
		if b := r.balls[id].ball; keep(b.State) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// setState must be called with r.mu held.
func (r *Registry) setState(e *entry, to model.ConnectionState) types.Change {
	metrics.RecordConnectionTransition(e.ball.State.String(), to.String())
	e.ball.State = to
	return r.change(e)
}

func (r *Registry) change(e *entry) types.Change {
	return types.Change{Topic: types.TopicBall, ID: e.ball.ID, State: e.ball.State.String()}
}

// updateStateGauges must be called with r.mu held.
func (r *Registry) updateStateGauges() {
	counts := make(map[model.ConnectionState]int, len(model.AllStates()))
	for _, e := range r.balls {
		counts[e.ball.State]++
	}
	for _, s := range model.AllStates() {
		metrics.UpdateBallsByState(s.String(), counts[s])
	}
}

func (r *Registry) emit(changes ...types.Change) {
	at := r.now()
	for _, c := range changes {
		c.At = at
		r.publisher.Publish(c)
	}
}

func clampBattery(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

package ble

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/pkg/logger"
)

// metersPerDegree is the approximate length of one degree of latitude.
const metersPerDegree = 111_195.0

type mockBall struct {
	id      string
	name    string
	pos     model.Coordinate
	battery int
	signal  int
}

// MockScanner emits discovery and telemetry events for a fixed set of
// simulated balls scattered around a centre point.
type MockScanner struct {
	sink     Sink
	interval time.Duration
	logger   logger.Logger

	mu     sync.Mutex
	balls  []*mockBall
	rng    *rand.Rand
	cancel context.CancelFunc
	done   chan struct{}
}

// MockOption configures the mock collaborators.
type MockOption func(*mockConfig)

type mockConfig struct {
	interval time.Duration
	count    int
	spreadM  float64
	prefix   string
	seed     int64
	delay    time.Duration
	failing  map[string]bool
	logger   logger.Logger
}

// WithInterval sets how often the mock scanner advertises.
func WithInterval(d time.Duration) MockOption {
	return func(c *mockConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithBallCount sets how many simulated balls exist.
func WithBallCount(n int) MockOption {
	return func(c *mockConfig) {
		if n > 0 {
			c.count = n
		}
	}
}

// WithSpread sets the maximum distance in metres of a ball from the centre.
func WithSpread(m float64) MockOption {
	return func(c *mockConfig) {
		if m > 0 {
			c.spreadM = m
		}
	}
}

// WithMockNamePrefix sets the advertised name prefix.
func WithMockNamePrefix(p string) MockOption {
	return func(c *mockConfig) {
		if p != "" {
			c.prefix = p
		}
	}
}

// WithSeed makes ball placement reproducible.
func WithSeed(seed int64) MockOption {
	return func(c *mockConfig) { c.seed = seed }
}

// WithConnectDelay sets how long a mock connection attempt takes.
func WithConnectDelay(d time.Duration) MockOption {
	return func(c *mockConfig) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithFailing makes connection attempts to the given ids fail.
func WithFailing(ids ...string) MockOption {
	return func(c *mockConfig) {
		for _, id := range ids {
			c.failing[id] = true
		}
	}
}

// WithMockLogger sets a custom logger.
func WithMockLogger(l logger.Logger) MockOption {
	return func(c *mockConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func newMockConfig(opts []MockOption) *mockConfig {
	c := &mockConfig{
		interval: time.Second,
		count:    4,
		spreadM:  60,
		prefix:   "JackTrack",
		seed:     time.Now().UnixNano(),
		delay:    500 * time.Millisecond,
		failing:  make(map[string]bool),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMockScanner places simulated balls within the configured spread of
// centre.
func NewMockScanner(sink Sink, centre model.Coordinate, opts ...MockOption) *MockScanner {
	c := newMockConfig(opts)
	rng := rand.New(rand.NewSource(c.seed)) //nolint:gosec // simulation only
	s := &MockScanner{
		sink:     sink,
		interval: c.interval,
		logger:   c.logger,
		rng:      rng,
	}
	for i := 0; i < c.count; i++ {
		s.balls = append(s.balls, &mockBall{
			id:      fmt.Sprintf("mock-ball-%d", i+1),
			name:    fmt.Sprintf("%s %d", c.prefix, i+1),
			pos:     offset(centre, rng.Float64()*c.spreadM, rng.Float64()*c.spreadM, rng),
			battery: 60 + rng.Intn(41),
			signal:  -50 - rng.Intn(40),
		})
	}
	return s
}

func offset(c model.Coordinate, northM, eastM float64, rng *rand.Rand) model.Coordinate {
	if rng.Intn(2) == 0 {
		northM = -northM
	}
	if rng.Intn(2) == 0 {
		eastM = -eastM
	}
	return model.Coordinate{
		Latitude:  c.Latitude + northM/metersPerDegree,
		Longitude: c.Longitude + eastM/metersPerDegree,
	}
}

// IDs lists the simulated ball identifiers.
func (s *MockScanner) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.balls))
	for i, b := range s.balls {
		ids[i] = b.id
	}
	return ids
}

// Start advertises every ball immediately and then on each tick until
// Stop is called or ctx is done.
func (s *MockScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.advertise(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.advertise(runCtx)
			}
		}
	}()
	s.logger.Info(ctx, "mock ble scan started")
	return nil
}

// Stop halts advertising and waits for the loop to exit.
func (s *MockScanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *MockScanner) advertise(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	events := make([]*model.DeviceEvent, 0, 2*len(s.balls))
	for _, b := range s.balls {
		b.signal = clampSignal(b.signal + s.rng.Intn(7) - 3)
		if b.battery > 5 && s.rng.Intn(10) == 0 {
			b.battery--
		}
		pos, battery := b.pos, b.battery
		events = append(events,
			&model.DeviceEvent{Kind: model.KindDiscovery, BallID: b.id, Name: b.name, Position: &pos, Battery: &battery, Signal: b.signal, TS: now},
			&model.DeviceEvent{Kind: model.KindTelemetry, BallID: b.id, Battery: &battery, Signal: b.signal, TS: now},
		)
	}
	s.mu.Unlock()

	for _, e := range events {
		if ctx.Err() != nil {
			return
		}
		if err := s.sink.Submit(ctx, e); err != nil {
			s.logger.Debug(ctx, "mock event dropped", logger.String("ball_id", e.BallID), logger.Error(err))
		}
	}
}

func clampSignal(v int) int {
	switch {
	case v > -30:
		return -30
	case v < -100:
		return -100
	}
	return v
}

// MockConnector accepts every connection after a short delay unless the
// ball is configured to fail.
type MockConnector struct {
	sink    Sink
	delay   time.Duration
	failing map[string]bool
	logger  logger.Logger
	wg      sync.WaitGroup
}

// NewMockConnector creates a connector reporting to sink.
func NewMockConnector(sink Sink, opts ...MockOption) *MockConnector {
	c := newMockConfig(opts)
	return &MockConnector{sink: sink, delay: c.delay, failing: c.failing, logger: c.logger}
}

// Connect reports connected or connect_failed after the configured delay.
func (m *MockConnector) Connect(ctx context.Context, id string) error {
	kind := model.KindConnected
	if m.failing[id] {
		kind = model.KindConnectFailed
	}
	m.after(ctx, kind, id)
	return nil
}

// Disconnect reports disconnected after the configured delay.
func (m *MockConnector) Disconnect(ctx context.Context, id string) error {
	m.after(ctx, model.KindDisconnected, id)
	return nil
}

// Wait blocks until every pending report has been delivered.
func (m *MockConnector) Wait() { m.wg.Wait() }

func (m *MockConnector) after(ctx context.Context, kind model.EventKind, id string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if m.delay > 0 {
			t := time.NewTimer(m.delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		e := &model.DeviceEvent{Kind: kind, BallID: id, TS: time.Now()}
		if err := m.sink.Submit(ctx, e); err != nil {
			m.logger.Warn(ctx, "mock event dropped", logger.String("ball_id", id), logger.Error(err))
		}
	}()
}

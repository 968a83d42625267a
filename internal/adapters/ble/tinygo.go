package ble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/pkg/logger"
)

// Adapter drives a host Bluetooth adapter. It scans for ball
// advertisements and opens connections to them.
type Adapter struct {
	adapter    *bluetooth.Adapter
	sink       Sink
	namePrefix string
	timeout    time.Duration
	logger     logger.Logger

	running atomic.Bool
	enabled sync.Once
	enErr   error

	mu        sync.Mutex
	addresses map[string]bluetooth.Address
	links     map[string]func() error
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithNamePrefix sets the local name prefix that identifies balls.
func WithNamePrefix(p string) AdapterOption {
	return func(a *Adapter) { a.namePrefix = p }
}

// WithConnectTimeout bounds connection attempts.
func WithConnectTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAdapter uses the host's default Bluetooth adapter.
func NewAdapter(sink Sink, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		adapter:   bluetooth.DefaultAdapter,
		sink:      sink,
		timeout:   DefaultConnectTimeout,
		logger:    logger.Nop(),
		addresses: make(map[string]bluetooth.Address),
		links:     make(map[string]func() error),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) enable() error {
	a.enabled.Do(func() {
		if err := a.adapter.Enable(); err != nil {
			a.enErr = fmt.Errorf("enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
		}
	})
	return a.enErr
}

// Start begins scanning in the background.
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.enable(); err != nil {
		return err
	}
	if !a.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !a.running.Load() {
				return
			}
			a.handle(ctx, result)
		})
		if err != nil {
			a.logger.Error(ctx, "ble scan ended", logger.Error(err))
		}
	}()
	a.logger.Info(ctx, "ble scan started")
	return nil
}

// Stop halts scanning.
func (a *Adapter) Stop() {
	if a.running.CompareAndSwap(true, false) {
		_ = a.adapter.StopScan()
	}
}

func (a *Adapter) handle(ctx context.Context, result bluetooth.ScanResult) {
	var (
		advert  Advert
		hasData bool
	)
	for _, m := range result.ManufacturerData() {
		if m.CompanyID == CompanyID {
			advert, hasData = DecodeAdvert(m.Data)
			break
		}
	}
	name := result.LocalName()
	if !IsBall(name, a.namePrefix, hasData) {
		return
	}

	id := result.Address.String()
	a.mu.Lock()
	a.addresses[id] = result.Address
	a.mu.Unlock()

	e := &model.DeviceEvent{
		Kind:   model.KindDiscovery,
		BallID: id,
		Name:   name,
		Signal: int(result.RSSI),
		TS:     time.Now(),
	}
	// A name-only sighting leaves position and battery unknown.
	if hasData {
		e.Position, e.Battery = &advert.Position, &advert.Battery
	}
	if err := a.sink.Submit(ctx, e); err != nil {
		a.logger.Debug(ctx, "discovery dropped", logger.String("ball_id", id), logger.Error(err))
	}
}

// Connect opens a link to a previously scanned ball. The outcome is
// reported to the sink; a connection that does not complete within the
// timeout is reported as connect_failed.
func (a *Adapter) Connect(ctx context.Context, id string) error {
	if err := a.enable(); err != nil {
		return err
	}
	a.mu.Lock()
	addr, ok := a.addresses[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble connect %s: address not seen", id)
	}

	go func() {
		type result struct {
			disconnect func() error
			err        error
		}
		done := make(chan result, 1)
		go func() {
			dev, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
			if err != nil {
				done <- result{err: err}
				return
			}
			done <- result{disconnect: dev.Disconnect}
		}()

		timer := time.NewTimer(a.timeout)
		defer timer.Stop()

		select {
		case r := <-done:
			if r.err != nil {
				a.logger.Warn(ctx, "ble connect failed", logger.String("ball_id", id), logger.Error(r.err))
				a.report(ctx, model.KindConnectFailed, id)
				return
			}
			a.mu.Lock()
			a.links[id] = r.disconnect
			a.mu.Unlock()
			a.report(ctx, model.KindConnected, id)
		case <-timer.C:
			a.logger.Warn(ctx, "ble connect timed out", logger.String("ball_id", id), logger.Duration("timeout", a.timeout))
			a.report(ctx, model.KindConnectFailed, id)
			go func() {
				if r := <-done; r.err == nil {
					_ = r.disconnect()
				}
			}()
		}
	}()
	return nil
}

// Disconnect closes an open link and reports disconnected.
func (a *Adapter) Disconnect(ctx context.Context, id string) error {
	a.mu.Lock()
	disconnect, ok := a.links[id]
	delete(a.links, id)
	a.mu.Unlock()

	if ok {
		if err := disconnect(); err != nil {
			a.logger.Warn(ctx, "ble disconnect failed", logger.String("ball_id", id), logger.Error(err))
		}
	}
	a.report(ctx, model.KindDisconnected, id)
	return nil
}

func (a *Adapter) report(ctx context.Context, kind model.EventKind, id string) {
	e := &model.DeviceEvent{Kind: kind, BallID: id, TS: time.Now()}
	if err := a.sink.Submit(ctx, e); err != nil {
		a.logger.Warn(ctx, "ble event dropped", logger.String("ball_id", id), logger.String("kind", string(kind)), logger.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/okian/jacktrack/internal/adapters/ble"
	"github.com/okian/jacktrack/internal/adapters/course"
	"github.com/okian/jacktrack/internal/adapters/http/api"
	"github.com/okian/jacktrack/internal/adapters/http/swagger"
	"github.com/okian/jacktrack/internal/adapters/location"
	"github.com/okian/jacktrack/internal/adapters/repository"
	app "github.com/okian/jacktrack/internal/app"
	"github.com/okian/jacktrack/internal/config"
	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/pkg/logger"
	"github.com/okian/jacktrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	simulatedWalkSteps        = 60
)

func serve(ctx context.Context, cfg *config.Config) error {
	if err := logger.InitWithOptions(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(ctx, cfg.Addr, svc)
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.Bool("demo", cfg.Demo))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService loads the course and store and picks the collaborators for
// the configured mode.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	c, err := loadCourse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	policy, ok := registry.ParseStopPolicy(cfg.ScanStopPolicy)
	if !ok {
		return nil, fmt.Errorf("unknown scan_stop_policy %q", cfg.ScanStopPolicy)
	}
	connectTimeout := time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond

	opts := []app.Option{
		app.WithLogger(log),
		app.WithCourse(c),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithConnectTimeout(connectTimeout),
		app.WithStopPolicy(policy),
	}

	if cfg.DatabasePath != "" {
		store, err := repository.OpenSQLite(ctx, cfg.DatabasePath, repository.WithLogger(log.Named("store")))
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithRoundStore(store))
	}

	if cfg.Demo {
		centre := demoCentre(c)
		opts = append(opts, app.WithRadio(func(sink ble.Sink) (ble.Scanner, ble.Connector) {
			return ble.NewMockScanner(sink, centre, ble.WithMockNamePrefix(cfg.BLENamePrefix), ble.WithMockLogger(log.Named("ble"))),
				ble.NewMockConnector(sink, ble.WithMockLogger(log.Named("ble")))
		}))
	} else {
		opts = append(opts, app.WithRadio(func(sink ble.Sink) (ble.Scanner, ble.Connector) {
			a := ble.NewAdapter(sink,
				ble.WithNamePrefix(cfg.BLENamePrefix),
				ble.WithConnectTimeout(connectTimeout),
				ble.WithLogger(log.Named("ble")),
			)
			return a, a
		}))
	}

	if src := locationSource(cfg, c, log); src != nil {
		opts = append(opts, app.WithLocationSource(src))
	}
	return app.New(opts...), nil
}

func loadCourse(ctx context.Context, cfg *config.Config) (model.Course, error) {
	var p course.Provider
	if cfg.CourseFile == "" {
		p = course.Sample()
	} else {
		var err error
		if p, err = course.NewProvider(cfg.CourseFormat, cfg.CourseFile); err != nil {
			return model.Course{}, err
		}
	}
	c, err := course.Load(ctx, p)
	if err != nil {
		return model.Course{}, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

// locationSource prefers a configured GPS port; demo mode falls back to a
// simulated walk from tee to pin.
func locationSource(cfg *config.Config, c model.Course, log logger.Logger) location.Source {
	if cfg.GPSPort != "" {
		return location.NewNMEASource(cfg.GPSPort, cfg.GPSBaud, location.WithNMEALogger(log.Named("gps")))
	}
	if !cfg.Demo {
		return nil
	}
	for _, h := range c.Holes {
		if h.Tee != nil && h.Pin != nil {
			return location.SimulatedSource{
				From:     *h.Tee,
				To:       *h.Pin,
				Steps:    simulatedWalkSteps,
				Interval: time.Duration(cfg.LocationIntervalMS) * time.Millisecond,
			}
		}
	}
	return nil
}

// demoCentre is where simulated balls land: the first known pin, else the
// first known tee.
func demoCentre(c model.Course) model.Coordinate {
	for _, h := range c.Holes {
		if h.Pin != nil {
			return *h.Pin
		}
	}
	for _, h := range c.Holes {
		if h.Tee != nil {
			return *h.Tee
		}
	}
	return model.Coordinate{}
}

func newHTTPServer(ctx context.Context, addr string, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if started, _ := stats["started"].(bool); !started {
		return
	}
	length, _ := stats["queueLength"].(int)
	capacity, _ := stats["queueSize"].(int)
	metrics.UpdateQueueCapacity(capacity)
	if capacity > 0 {
		metrics.UpdateQueueUtilization(float64(length) / float64(capacity))
	}

	scanning, _ := stats["scanning"].(bool)
	navigating, _ := stats["navigating"].(bool)
	metrics.UpdateScanActive(scanning)
	metrics.UpdateNavigationActive(navigating)

	connected, _ := stats["ballsConnected"].(int)
	available, _ := stats["ballsAvailable"].(int)
	metrics.UpdateBallsByState("connected", connected)
	metrics.UpdateBallsByState("available", available)
}

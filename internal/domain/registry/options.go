package registry

import (
	"time"

	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/logger"
)

// StopPolicy decides what happens to never-connected balls when a scan stops.
type StopPolicy int

const (
	// StopMarkLost moves Discovered balls that were never Connected to Lost.
	StopMarkLost StopPolicy = iota
	// StopRetain leaves every ball in its current state.
	StopRetain
)

// ParseStopPolicy maps a config value to a StopPolicy.
func ParseStopPolicy(s string) (StopPolicy, bool) {
	switch s {
	case "", "mark_lost":
		return StopMarkLost, true
	case "retain":
		return StopRetain, true
	default:
		return StopMarkLost, false
	}
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithStopPolicy sets the scan stop policy.
func WithStopPolicy(p StopPolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithPublisher sets where change notifications go.
func WithPublisher(p notify.Publisher[types.Change]) Option {
	return func(r *Registry) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

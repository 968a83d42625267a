package service

import (
	"time"

	"github.com/okian/jacktrack/internal/adapters/ble"
	"github.com/okian/jacktrack/internal/adapters/location"
	"github.com/okian/jacktrack/internal/adapters/repository"
	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/pkg/logger"
)

// RadioFactory builds the BLE collaborators once the service can accept
// their events.
type RadioFactory func(sink ble.Sink) (ble.Scanner, ble.Connector)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCourse sets the course the round is played on.
func WithCourse(c model.Course) Option {
	return func(s *Service) {
		s.course = c
	}
}

// WithRoundStore sets where saved rounds go. Defaults to memory.
func WithRoundStore(store repository.RoundStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRadio sets the BLE collaborators. Without one, ball events only
// arrive through Submit.
func WithRadio(f RadioFactory) Option {
	return func(s *Service) {
		s.radio = f
	}
}

// WithLocationSource sets a source of device fixes. Without one, fixes
// only arrive through Submit.
func WithLocationSource(src location.Source) Option {
	return func(s *Service) {
		s.locationSource = src
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithConnectTimeout sets how long a ball may stay Connecting before it is
// reported Lost.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithStopPolicy sets what happens to discovered balls when a scan stops.
func WithStopPolicy(p registry.StopPolicy) Option {
	return func(s *Service) {
		s.stopPolicy = p
	}
}

// WithPlayerName sets the initial scorecard player name.
func WithPlayerName(name string) Option {
	return func(s *Service) {
		s.playerName = name
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

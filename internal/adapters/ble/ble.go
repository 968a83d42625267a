// Package ble discovers and connects tagged golf balls over Bluetooth Low
// Energy and reports what it sees as device events.
package ble

import (
	"context"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
)

// DefaultConnectTimeout bounds a connection attempt.
const DefaultConnectTimeout = 10 * time.Second

// Sink receives device events produced by the scanner and connector.
type Sink interface {
	Submit(ctx context.Context, e *model.DeviceEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e *model.DeviceEvent) error

// Submit calls f(ctx, e).
func (f SinkFunc) Submit(ctx context.Context, e *model.DeviceEvent) error { return f(ctx, e) }

// Scanner reports discovery events while running.
type Scanner interface {
	Start(ctx context.Context) error
	Stop()
}

// Connector performs connection attempts. Results are reported
// asynchronously to the sink as connected, connect_failed or disconnected
// events.
type Connector interface {
	Connect(ctx context.Context, id string) error
	Disconnect(ctx context.Context, id string) error
}

package model

import (
	"fmt"
	"time"
)

// EventKind identifies what a collaborator reported.
type EventKind string

// Collaborator event kinds.
const (
	KindDiscovery     EventKind = "discovery"
	KindTelemetry     EventKind = "telemetry"
	KindConnected     EventKind = "connected"
	KindConnectFailed EventKind = "connect_failed"
	KindDisconnected  EventKind = "disconnected"
	KindLocation      EventKind = "location"
)

// DeviceEvent is a discrete update delivered by the BLE or location
// collaborators. Fields not relevant to Kind are left zero. Position and
// Battery are nil when the sighting did not carry them.
type DeviceEvent struct {
	EventID  string      `json:"event_id"`
	Kind     EventKind   `json:"kind"`
	BallID   string      `json:"ball_id,omitempty"`
	Name     string      `json:"name,omitempty"`
	Position *Coordinate `json:"position,omitempty"`
	Battery  *int        `json:"battery,omitempty"`
	Signal   int         `json:"signal,omitempty"`
	Fix      *Fix        `json:"fix,omitempty"`
	TS       time.Time   `json:"ts"`
}

// Validate checks that the fields required by the event kind are present.
func (e *DeviceEvent) Validate() error {
	switch e.Kind {
	case KindDiscovery:
		if e.BallID == "" {
			return fmt.Errorf("%s event requires ball_id", e.Kind)
		}
		if e.Position != nil && !e.Position.Valid() {
			return fmt.Errorf("%s event has out of range position", e.Kind)
		}
	case KindTelemetry, KindConnected, KindConnectFailed, KindDisconnected:
		if e.BallID == "" {
			return fmt.Errorf("%s event requires ball_id", e.Kind)
		}
	case KindLocation:
		if e.Fix == nil {
			return fmt.Errorf("%s event requires fix", e.Kind)
		}
		if !e.Fix.Position.Valid() {
			return fmt.Errorf("%s event has out of range fix", e.Kind)
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

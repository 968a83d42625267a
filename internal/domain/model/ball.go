package model

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionState is the connectivity state of a tracked ball.
type ConnectionState int

// Connection states. A ball is in exactly one of them at a time.
const (
	StateDiscovered ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateLost
)

var stateNames = [...]string{
	StateDiscovered:    "discovered",
	StateConnecting:    "connecting",
	StateConnected:     "connected",
	StateDisconnecting: "disconnecting",
	StateLost:          "lost",
}

// AllStates lists every connection state in declaration order.
func AllStates() []ConnectionState {
	return []ConnectionState{StateDiscovered, StateConnecting, StateConnected, StateDisconnecting, StateLost}
}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the defined states.
func (s ConnectionState) Valid() bool {
	return s >= StateDiscovered && s <= StateLost
}

// MarshalText encodes the state by name.
func (s ConnectionState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid connection state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *ConnectionState) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range stateNames {
		if n == name {
			*s = ConnectionState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", string(b))
}

// TrackedBall is one physical tagged ball known to the registry. Position
// is nil until a sighting reports one.
type TrackedBall struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Position       *Coordinate     `json:"position,omitempty"`
	BatteryLevel   int             `json:"battery_level"`
	SignalStrength int             `json:"signal_strength"`
	State          ConnectionState `json:"state"`
	DiscoveredAt   time.Time       `json:"discovered_at"`
	LastSeen       time.Time       `json:"last_seen"`
}

// Clone returns a copy that shares no memory with b.
func (b TrackedBall) Clone() TrackedBall {
	if b.Position != nil {
		p := *b.Position
		b.Position = &p
	}
	return b
}

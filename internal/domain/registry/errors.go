package registry

import "errors"

// Sentinel errors returned by the registry.
var (
	ErrUnknownBall       = errors.New("unknown ball")
	ErrInvalidTransition = errors.New("invalid state transition")
)

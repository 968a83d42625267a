package types

import "errors"

// Rejected input: the caller should re-prompt.
var (
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidScore  = errors.New("invalid score")
)

// Preconditions not met: the caller may wait or ignore.
var (
	ErrEmptyRound    = errors.New("empty round")
	ErrNoLocationFix = errors.New("no location fix")
	ErrNoTarget      = errors.New("no target selected")

	// ErrLocationDenied is terminal: no fix will arrive until the source
	// is granted access and restarted.
	ErrLocationDenied = errors.New("location permission denied")
)

// IsRejectedInput reports whether err was caused by invalid caller input.
func IsRejectedInput(err error) bool {
	return errors.Is(err, ErrInvalidTarget) || errors.Is(err, ErrInvalidScore)
}

// IsPreconditionUnmet reports whether err was caused by state that is not
// ready yet rather than by the input itself.
func IsPreconditionUnmet(err error) bool {
	return errors.Is(err, ErrEmptyRound) ||
		errors.Is(err, ErrNoLocationFix) ||
		errors.Is(err, ErrLocationDenied) ||
		errors.Is(err, ErrNoTarget)
}

// Service level failures.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrUnknownHole    = errors.New("unknown hole")
	ErrNoPin          = errors.New("pin position unknown")
)

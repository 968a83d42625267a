package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/jacktrack/internal/adapters/mq/queue"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrStream       = errors.New("streaming unsupported")
)

// KindError tags an error with the operation that failed and a sentinel
// kind that decides the HTTP status.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind tags err with kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

type errorMapping struct {
	kind   error
	status int
	code   string
}

// mappings is ordered: the first kind err matches wins.
var mappings = []errorMapping{
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{types.ErrInvalidEvent, http.StatusBadRequest, "bad_request"},
	{types.ErrInvalidScore, http.StatusBadRequest, "invalid_score"},
	{types.ErrInvalidTarget, http.StatusBadRequest, "invalid_target"},
	{registry.ErrUnknownBall, http.StatusNotFound, "unknown_ball"},
	{types.ErrUnknownHole, http.StatusNotFound, "unknown_hole"},
	{types.ErrNoPin, http.StatusNotFound, "no_pin"},
	{types.ErrEmptyRound, http.StatusConflict, "empty_round"},
	{types.ErrNoTarget, http.StatusConflict, "no_target"},
	{registry.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{types.ErrLocationDenied, http.StatusForbidden, "location_denied"},
	{types.ErrNoLocationFix, http.StatusServiceUnavailable, "no_location_fix"},
	{ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
	{queue.ErrFull, http.StatusTooManyRequests, "backpressure"},
	{queue.ErrClosed, http.StatusServiceUnavailable, "unavailable"},
	{types.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
}

// StatusFor maps an error to its HTTP status and machine readable code.
func StatusFor(err error) (int, string) {
	for _, m := range mappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

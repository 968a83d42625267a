package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
)

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	// Submit queues an event. It returns ErrDuplicateEvent for a seen
	// event id and a queue.ErrFull wrapped error on backpressure.
	Submit(ctx context.Context, e *model.DeviceEvent) error
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /v1/events.
type eventRequest struct {
	EventID  string            `json:"event_id"`
	Kind     string            `json:"kind"`
	BallID   string            `json:"ball_id"`
	Name     string            `json:"name"`
	Position *model.Coordinate `json:"position"`
	Battery  *int              `json:"battery"`
	Signal   int               `json:"signal"`
	Fix      *fixRequest       `json:"fix"`
	TS       string            `json:"ts"`
}

type fixRequest struct {
	Position  model.Coordinate `json:"position"`
	AccuracyM float64          `json:"accuracy_m"`
	At        string           `json:"at"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.Kind) == "":
		return errors.New("missing kind")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	if e.Fix != nil && e.Fix.At != "" {
		if _, err := time.Parse(time.RFC3339, e.Fix.At); err != nil {
			return errors.New("invalid fix.at; must be RFC3339")
		}
	}
	return nil
}

func (e eventRequest) toModel() *model.DeviceEvent {
	ev := &model.DeviceEvent{
		EventID: e.EventID,
		Kind:    model.EventKind(e.Kind),
		BallID:  e.BallID,
		Name:    e.Name,
		Battery: e.Battery,
		Signal:  e.Signal,
	}
	if e.Position != nil {
		p := *e.Position
		ev.Position = &p
	}
	if e.TS != "" {
		ev.TS, _ = time.Parse(time.RFC3339, e.TS)
	}
	if e.Fix != nil {
		at := time.Now()
		if e.Fix.At != "" {
			at, _ = time.Parse(time.RFC3339, e.Fix.At)
		}
		ev.Fix = &model.Fix{Position: e.Fix.Position, AccuracyM: e.Fix.AccuracyM, At: at}
	}
	return ev
}

// HandlePostEvent handles POST /v1/events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.Submit(r.Context(), req.toModel())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, types.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	default:
		writeFailure(w, op, err)
	}
}

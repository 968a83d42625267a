package api

import (
	"context"
	"net/http"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
)

// BallDependencies covers scanning and connection management.
type BallDependencies interface {
	Balls(ctx context.Context) (types.BallsView, error)
	Ball(ctx context.Context, id string) (model.TrackedBall, error)
	StartScan(ctx context.Context) error
	StopScan(ctx context.Context) error
	Connect(ctx context.Context, id string) (model.ConnectionState, error)
	Disconnect(ctx context.Context, id string) (model.ConnectionState, error)
	RemoveBall(ctx context.Context, id string) error
}

// BallsHandler serves /v1/balls and /v1/scan.
type BallsHandler struct {
	deps BallDependencies
}

// NewBallsHandler creates a new balls handler.
func NewBallsHandler(deps BallDependencies) *BallsHandler {
	return &BallsHandler{deps: deps}
}

// HandleList handles GET /v1/balls.
func (h *BallsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Balls(r.Context())
	if err != nil {
		writeFailure(w, "api.balls", err)
		return
	}
	if view.Connected == nil {
		view.Connected = []model.TrackedBall{}
	}
	if view.Available == nil {
		view.Available = []model.TrackedBall{}
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGet handles GET /v1/balls/{id}.
func (h *BallsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.deps.Ball(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, "api.ball", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleRemove handles DELETE /v1/balls/{id}.
func (h *BallsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveBall(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, "api.ball_remove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleConnect handles POST /v1/balls/{id}/connect. The attempt completes
// asynchronously; the response carries the state right after the request.
func (h *BallsHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.deps.Connect(r.Context(), id)
	if err != nil {
		writeFailure(w, "api.ball_connect", err)
		return
	}
	writeJSON(w, http.StatusAccepted, stateResponse{ID: id, State: state})
}

// HandleDisconnect handles POST /v1/balls/{id}/disconnect.
func (h *BallsHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.deps.Disconnect(r.Context(), id)
	if err != nil {
		writeFailure(w, "api.ball_disconnect", err)
		return
	}
	writeJSON(w, http.StatusAccepted, stateResponse{ID: id, State: state})
}

type scanResponse struct {
	Scanning bool `json:"scanning"`
}

// HandleStartScan handles POST /v1/scan/start.
func (h *BallsHandler) HandleStartScan(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.StartScan(r.Context()); err != nil {
		writeFailure(w, "api.scan_start", err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{Scanning: true})
}

// HandleStopScan handles POST /v1/scan/stop.
func (h *BallsHandler) HandleStopScan(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.StopScan(r.Context()); err != nil {
		writeFailure(w, "api.scan_stop", err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{Scanning: false})
}

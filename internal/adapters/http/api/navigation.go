package api

import (
	"context"
	"net/http"

	"github.com/okian/jacktrack/internal/domain/types"
)

// NavigationDependencies covers the navigation session.
type NavigationDependencies interface {
	Navigation(ctx context.Context) (types.NavigationFeed, error)
	SelectTarget(ctx context.Context, id string) error
	StartNavigating(ctx context.Context) error
	StopNavigating(ctx context.Context) error
}

// NavigationHandler serves /v1/navigation.
type NavigationHandler struct {
	deps NavigationDependencies
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(deps NavigationDependencies) *NavigationHandler {
	return &NavigationHandler{deps: deps}
}

type targetRequest struct {
	BallID string `json:"ball_id"`
}

// HandleFeed handles GET /v1/navigation.
func (h *NavigationHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.navigation", nil)
}

// HandleSelectTarget handles POST /v1/navigation/target. An empty ball_id
// clears the selection.
func (h *NavigationHandler) HandleSelectTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.navigation_target"
	var req targetRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, r, op, func(ctx context.Context) error { return h.deps.SelectTarget(ctx, req.BallID) })
}

// HandleStart handles POST /v1/navigation/start.
func (h *NavigationHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.navigation_start", h.deps.StartNavigating)
}

// HandleStop handles POST /v1/navigation/stop.
func (h *NavigationHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.navigation_stop", h.deps.StopNavigating)
}

// respond runs mutate, if any, and answers with the resulting feed.
func (h *NavigationHandler) respond(w http.ResponseWriter, r *http.Request, op string, mutate func(context.Context) error) {
	if mutate != nil {
		if err := mutate(r.Context()); err != nil {
			writeFailure(w, op, err)
			return
		}
	}
	feed, err := h.deps.Navigation(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

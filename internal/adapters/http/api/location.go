package api

import (
	"context"
	"net/http"

	"github.com/okian/jacktrack/internal/domain/model"
)

// LocationDependencies exposes the user's latest fix.
type LocationDependencies interface {
	Location(ctx context.Context) (model.Fix, error)
}

// LocationHandler serves /v1/location.
type LocationHandler struct {
	deps LocationDependencies
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(deps LocationDependencies) *LocationHandler {
	return &LocationHandler{deps: deps}
}

// HandleGet handles GET /v1/location. A denied source answers 403
// location_denied; no fix yet answers 503 no_location_fix.
func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	fix, err := h.deps.Location(r.Context())
	if err != nil {
		writeFailure(w, "api.location", err)
		return
	}
	writeJSON(w, http.StatusOK, fix)
}

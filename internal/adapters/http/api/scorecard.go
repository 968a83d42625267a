package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
)

// ScorecardDependencies covers the round in progress.
type ScorecardDependencies interface {
	Scorecard(ctx context.Context) (types.ScorecardView, error)
	SetScore(ctx context.Context, hole, strokes int) error
	SetPlayerName(ctx context.Context, name string) error
	SaveRound(ctx context.Context, playerName string) (model.SavedRound, error)
	ResetRound(ctx context.Context) error
}

// ScorecardHandler serves /v1/scorecard.
type ScorecardHandler struct {
	deps ScorecardDependencies
}

// NewScorecardHandler creates a new scorecard handler.
func NewScorecardHandler(deps ScorecardDependencies) *ScorecardHandler {
	return &ScorecardHandler{deps: deps}
}

type scoreRequest struct {
	Strokes *int `json:"strokes"`
}

type playerRequest struct {
	PlayerName string `json:"player_name"`
}

// HandleGet handles GET /v1/scorecard.
func (h *ScorecardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.scorecard")
}

// HandleSetScore handles PUT /v1/scorecard/holes/{n}. Zero strokes clears
// the hole.
func (h *ScorecardHandler) HandleSetScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.scorecard_hole"
	hole, err := holeParam(r)
	if err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Strokes == nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, errors.New("missing strokes")))
		return
	}
	if err := h.deps.SetScore(r.Context(), hole, *req.Strokes); err != nil {
		writeFailure(w, op, err)
		return
	}
	h.respond(w, r, op)
}

// HandleSetPlayer handles PUT /v1/scorecard/player.
func (h *ScorecardHandler) HandleSetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.scorecard_player"
	var req playerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SetPlayerName(r.Context(), req.PlayerName); err != nil {
		writeFailure(w, op, err)
		return
	}
	h.respond(w, r, op)
}

// HandleSave handles POST /v1/scorecard/save. The body is optional; a
// player_name in it overrides the current one.
func (h *ScorecardHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.scorecard_save"
	var req playerRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	round, err := h.deps.SaveRound(r.Context(), req.PlayerName)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

// HandleReset handles POST /v1/scorecard/reset.
func (h *ScorecardHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.scorecard_reset"
	if err := h.deps.ResetRound(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	h.respond(w, r, op)
}

func (h *ScorecardHandler) respond(w http.ResponseWriter, r *http.Request, op string) {
	view, err := h.deps.Scorecard(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

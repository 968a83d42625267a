package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/jacktrack/internal/domain/model"
)

// RoundDependencies covers saved rounds.
type RoundDependencies interface {
	Rounds(ctx context.Context) ([]model.SavedRound, error)
	ExportRounds(ctx context.Context, w io.Writer) (int, error)
	ClearRounds(ctx context.Context) error
}

// RoundsHandler serves /v1/rounds.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// HandleList handles GET /v1/rounds.
func (h *RoundsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.deps.Rounds(r.Context())
	if err != nil {
		writeFailure(w, "api.rounds", err)
		return
	}
	if rounds == nil {
		rounds = []model.SavedRound{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

// HandleExport handles GET /v1/rounds/export.csv. The export is buffered so
// a failure still produces a JSON error instead of a truncated file.
func (h *RoundsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.deps.ExportRounds(r.Context(), &buf)
	if err != nil {
		writeFailure(w, "api.rounds_export", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rounds.csv"`)
	w.Header().Set("X-Round-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleClear handles DELETE /v1/rounds.
func (h *RoundsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearRounds(r.Context()); err != nil {
		writeFailure(w, "api.rounds_clear", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

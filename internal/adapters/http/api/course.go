package api

import (
	"context"
	"net/http"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
)

// CourseDependencies covers course reference data.
type CourseDependencies interface {
	Course(ctx context.Context) (model.Course, error)
	HoleDistance(ctx context.Context, hole int) (types.HoleDistance, error)
}

// CourseHandler serves /v1/course.
type CourseHandler struct {
	deps CourseDependencies
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(deps CourseDependencies) *CourseHandler {
	return &CourseHandler{deps: deps}
}

// HandleGet handles GET /v1/course.
func (h *CourseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Course(r.Context())
	if err != nil {
		writeFailure(w, "api.course", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleHoleDistance handles GET /v1/course/holes/{n}/distance.
func (h *CourseHandler) HandleHoleDistance(w http.ResponseWriter, r *http.Request) {
	const op = "api.hole_distance"
	n, err := holeParam(r)
	if err != nil {
		writeFailure(w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	d, err := h.deps.HoleDistance(r.Context(), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

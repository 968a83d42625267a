// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/types"
	"github.com/okian/jacktrack/pkg/metrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Each handler only sees the slice
// it needs.
type Dependencies interface {
	EventDependencies
	BallDependencies
	NavigationDependencies
	ScorecardDependencies
	RoundDependencies
	CourseDependencies
	LocationDependencies
	StreamDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	ballsHandler      *BallsHandler
	navigationHandler *NavigationHandler
	scorecardHandler  *ScorecardHandler
	roundsHandler     *RoundsHandler
	courseHandler     *CourseHandler
	locationHandler   *LocationHandler
	streamHandler     *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		ballsHandler:      NewBallsHandler(deps),
		navigationHandler: NewNavigationHandler(deps),
		scorecardHandler:  NewScorecardHandler(deps),
		roundsHandler:     NewRoundsHandler(deps),
		courseHandler:     NewCourseHandler(deps),
		locationHandler:   NewLocationHandler(deps),
		streamHandler:     NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)
	route("POST /v1/events", "events", s.eventsHandler.HandlePostEvent)

	route("GET /v1/balls", "balls", s.ballsHandler.HandleList)
	route("GET /v1/balls/{id}", "ball", s.ballsHandler.HandleGet)
	route("DELETE /v1/balls/{id}", "ball_remove", s.ballsHandler.HandleRemove)
	route("POST /v1/balls/{id}/connect", "ball_connect", s.ballsHandler.HandleConnect)
	route("POST /v1/balls/{id}/disconnect", "ball_disconnect", s.ballsHandler.HandleDisconnect)
	route("POST /v1/scan/start", "scan_start", s.ballsHandler.HandleStartScan)
	route("POST /v1/scan/stop", "scan_stop", s.ballsHandler.HandleStopScan)

	route("GET /v1/navigation", "navigation", s.navigationHandler.HandleFeed)
	route("POST /v1/navigation/target", "navigation_target", s.navigationHandler.HandleSelectTarget)
	route("POST /v1/navigation/start", "navigation_start", s.navigationHandler.HandleStart)
	route("POST /v1/navigation/stop", "navigation_stop", s.navigationHandler.HandleStop)

	route("GET /v1/scorecard", "scorecard", s.scorecardHandler.HandleGet)
	route("PUT /v1/scorecard/holes/{n}", "scorecard_hole", s.scorecardHandler.HandleSetScore)
	route("PUT /v1/scorecard/player", "scorecard_player", s.scorecardHandler.HandleSetPlayer)
	route("POST /v1/scorecard/save", "scorecard_save", s.scorecardHandler.HandleSave)
	route("POST /v1/scorecard/reset", "scorecard_reset", s.scorecardHandler.HandleReset)

	route("GET /v1/rounds", "rounds", s.roundsHandler.HandleList)
	route("GET /v1/rounds/export.csv", "rounds_export", s.roundsHandler.HandleExport)
	route("DELETE /v1/rounds", "rounds_clear", s.roundsHandler.HandleClear)

	route("GET /v1/course", "course", s.courseHandler.HandleGet)
	route("GET /v1/course/holes/{n}/distance", "hole_distance", s.courseHandler.HandleHoleDistance)

	route("GET /v1/location", "location", s.locationHandler.HandleGet)

	route("GET /v1/stream", "stream", s.streamHandler.HandleStream)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type stateResponse struct {
	ID    string                `json:"id"`
	State model.ConnectionState `json:"state"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err through StatusFor.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		metrics.RecordErrorByComponent("api", op)
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// holeParam parses the {n} path segment. Range checks belong to the engine,
// which knows the course.
func holeParam(r *http.Request) (int, error) {
	raw := r.PathValue("n")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("hole must be an integer, got %q", raw)
	}
	return n, nil
}

// Change mirrors the notification shape streamed to clients.
type Change = types.Change

package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/jacktrack/internal/adapters/mq/queue"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/internal/domain/types"
)

func TestKindErrors(t *testing.T) {
	Convey("Given a wrapped kind error", t, func() {
		cause := errors.New("unexpected EOF")
		err := WrapKind("api.post_event", ErrBadRequest, cause)

		Convey("Then both kind and cause are visible to errors.Is", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_event: bad request: unexpected EOF")
		})

		Convey("Then NewKind omits the cause", func() {
			So(NewKind("api.x", ErrBackpressure).Error(), ShouldEqual, "api.x: backpressure")
		})
	})
}

func TestStatusFor(t *testing.T) {
	Convey("StatusFor maps domain errors to HTTP", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{WrapKind("op", ErrBadRequest, errors.New("x")), http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("hole 1: %w", types.ErrInvalidScore), http.StatusBadRequest, "invalid_score"},
			{types.ErrInvalidTarget, http.StatusBadRequest, "invalid_target"},
			{types.ErrEmptyRound, http.StatusConflict, "empty_round"},
			{types.ErrNoTarget, http.StatusConflict, "no_target"},
			{types.ErrNoLocationFix, http.StatusServiceUnavailable, "no_location_fix"},
			{fmt.Errorf("hole 7: %w", types.ErrLocationDenied), http.StatusForbidden, "location_denied"},
			{fmt.Errorf("ball: %w", registry.ErrUnknownBall), http.StatusNotFound, "unknown_ball"},
			{types.ErrUnknownHole, http.StatusNotFound, "unknown_hole"},
			{fmt.Errorf("enqueue: %w", queue.ErrFull), http.StatusTooManyRequests, "backpressure"},
			{types.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
			{errors.New("boom"), http.StatusInternalServerError, "internal"},
		}
		for _, c := range cases {
			status, code := StatusFor(c.err)
			So(status, ShouldEqual, c.status)
			So(code, ShouldEqual, c.code)
		}
	})
}

func TestEventRequestValidate(t *testing.T) {
	Convey("Given event requests", t, func() {
		So(eventRequest{EventID: "e", Kind: "telemetry"}.validate(), ShouldBeNil)
		So(eventRequest{Kind: "telemetry"}.validate(), ShouldNotBeNil)
		So(eventRequest{EventID: "e"}.validate(), ShouldNotBeNil)
		So(eventRequest{EventID: "e", Kind: "location", Fix: &fixRequest{At: "noon"}}.validate(), ShouldNotBeNil)
	})
}

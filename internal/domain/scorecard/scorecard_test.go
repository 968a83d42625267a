package scorecard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/scorecard"
	"github.com/okian/jacktrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingSaver struct {
	rounds []model.SavedRound
	err    error
}

func (r *recordingSaver) Save(_ context.Context, round model.SavedRound) error {
	if r.err != nil {
		return r.err
	}
	r.rounds = append(r.rounds, round)
	return nil
}

func testCourse() model.Course {
	return model.Course{
		Name: "Links",
		Holes: []model.Hole{
			{Number: 1, Par: 4, Yardage: 380},
			{Number: 2, Par: 5, Yardage: 502},
			{Number: 3, Par: 3, Yardage: 180},
		},
	}
}

func TestSetScore(t *testing.T) {
	Convey("Given a fresh scorecard", t, func() {
		ctx := context.Background()
		e := scorecard.New(testCourse(), nil)

		Convey("Then every aggregate starts at zero", func() {
			a := e.Aggregate()
			So(a, ShouldResemble, model.Aggregate{})
			So(a.AverageScore, ShouldEqual, 0)
		})

		Convey("When scores are set", func() {
			So(e.SetScore(ctx, 1, 4), ShouldBeNil)
			So(e.SetScore(ctx, 2, 7), ShouldBeNil)

			Convey("Then the aggregate reflects them immediately", func() {
				a := e.Aggregate()
				So(a.TotalScore, ShouldEqual, 11)
				So(a.TotalPar, ShouldEqual, 9)
				So(a.RelativeToPar, ShouldEqual, 2)
				So(a.HolesPlayed, ShouldEqual, 2)
				So(a.AverageScore, ShouldEqual, 5.5)
			})

			Convey("Then re-entering a score overwrites it", func() {
				So(e.SetScore(ctx, 2, 5), ShouldBeNil)
				So(e.Aggregate().TotalScore, ShouldEqual, 9)
			})

			Convey("Then zero clears a hole", func() {
				So(e.SetScore(ctx, 2, 0), ShouldBeNil)
				a := e.Aggregate()
				So(a.HolesPlayed, ShouldEqual, 1)
				So(a.TotalPar, ShouldEqual, 4)
			})

			Convey("Then the hole view carries per-hole relative to par", func() {
				holes := e.Holes()
				So(len(holes), ShouldEqual, 3)
				So(holes[1].Strokes, ShouldEqual, 7)
				So(holes[1].RelativeToPar, ShouldEqual, 2)
				So(holes[2].RelativeToPar, ShouldEqual, 0)
			})
		})

		Convey("When scores are out of range or the hole is unknown", func() {
			for _, tc := range []struct{ hole, strokes int }{{1, -1}, {1, 16}, {9, 4}, {0, 3}} {
				err := e.SetScore(ctx, tc.hole, tc.strokes)
				So(errors.Is(err, types.ErrInvalidScore), ShouldBeTrue)
				So(types.IsRejectedInput(err), ShouldBeTrue)
			}

			Convey("Then nothing is recorded", func() {
				So(e.Aggregate().HolesPlayed, ShouldEqual, 0)
			})
		})

		Convey("When the boundaries are used", func() {
			So(e.SetScore(ctx, 1, 15), ShouldBeNil)
			So(e.SetScore(ctx, 2, 1), ShouldBeNil)
			So(e.Aggregate().TotalScore, ShouldEqual, 16)
		})
	})
}

func TestReset(t *testing.T) {
	Convey("Given scores for two holes", t, func() {
		ctx := context.Background()
		e := scorecard.New(testCourse(), nil, scorecard.WithPlayerName("Alex"))
		So(e.SetScore(ctx, 1, 4), ShouldBeNil)
		So(e.SetScore(ctx, 2, 5), ShouldBeNil)

		Convey("When reset and one hole is re-entered", func() {
			e.Reset(ctx)
			So(e.SetScore(ctx, 1, 3), ShouldBeNil)

			Convey("Then only the new score counts and the player is kept", func() {
				a := e.Aggregate()
				So(a.TotalScore, ShouldEqual, 3)
				So(a.HolesPlayed, ShouldEqual, 1)
				So(e.Game().PlayerName, ShouldEqual, "Alex")
				So(e.Course().Name, ShouldEqual, "Links")
			})
		})
	})
}

func TestSave(t *testing.T) {
	Convey("Given a scorecard with a saver", t, func() {
		ctx := context.Background()
		saver := &recordingSaver{}
		at := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
		e := scorecard.New(testCourse(), saver, scorecard.WithClock(func() time.Time { return at }))

		Convey("When saving an empty round", func() {
			_, err := e.Save(ctx, "Alex")

			Convey("Then it fails with EmptyRound", func() {
				So(errors.Is(err, types.ErrEmptyRound), ShouldBeTrue)
				So(types.IsPreconditionUnmet(err), ShouldBeTrue)
				So(saver.rounds, ShouldBeEmpty)
			})
		})

		Convey("When saving after one score", func() {
			So(e.SetScore(ctx, 1, 4), ShouldBeNil)
			round, err := e.Save(ctx, "Alex")

			Convey("Then a snapshot is handed to the saver", func() {
				So(err, ShouldBeNil)
				So(round.Stats.TotalScore, ShouldEqual, 4)
				So(round.PlayerName, ShouldEqual, "Alex")
				So(round.CourseName, ShouldEqual, "Links")
				So(round.ID, ShouldNotBeEmpty)
				So(round.SavedAt, ShouldEqual, at)
				So(round.Scores, ShouldResemble, map[int]int{1: 4})
				So(saver.rounds, ShouldHaveLength, 1)
				So(*e.Game().SavedAt, ShouldEqual, at)
			})

			Convey("Then the snapshot is independent of later edits", func() {
				So(e.SetScore(ctx, 1, 9), ShouldBeNil)
				So(saver.rounds[0].Scores[1], ShouldEqual, 4)
			})
		})

		Convey("When the saver fails", func() {
			saver.err = errors.New("disk full")
			So(e.SetScore(ctx, 3, 3), ShouldBeNil)
			_, err := e.Save(ctx, "")

			Convey("Then the error is wrapped and returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, saver.err), ShouldBeTrue)
				So(e.Game().SavedAt, ShouldBeNil)
			})
		})
	})

	Convey("Given a named player and a saver that fails", t, func() {
		ctx := context.Background()
		saver := &recordingSaver{err: errors.New("disk full")}
		e := scorecard.New(testCourse(), saver, scorecard.WithPlayerName("Alex"))
		So(e.SetScore(ctx, 1, 4), ShouldBeNil)

		Convey("When saving under a new name", func() {
			_, err := e.Save(ctx, "Sam")

			Convey("Then the player name is left unchanged", func() {
				So(err, ShouldNotBeNil)
				So(e.Game().PlayerName, ShouldEqual, "Alex")
			})

			Convey("Then a later successful save commits the new name", func() {
				saver.err = nil
				round, err := e.Save(ctx, "Sam")
				So(err, ShouldBeNil)
				So(round.PlayerName, ShouldEqual, "Sam")
				So(e.Game().PlayerName, ShouldEqual, "Sam")
			})
		})
	})
}

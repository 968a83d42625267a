package location_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/okian/jacktrack/internal/adapters/location"
	"github.com/okian/jacktrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	rmcValid = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcVoid  = "$GPRMC,123520,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*77"
	ggaValid = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaNoFix = "$GPGGA,123520,4807.038,N,01131.000,E,0,00,99.9,545.4,M,46.9,M,,*74"
)

func TestParseSentence(t *testing.T) {
	Convey("Given NMEA sentences", t, func() {
		at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

		Convey("A valid RMC yields a fix", func() {
			fix, ok, err := location.ParseSentence(rmcValid, at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(fix.Position.Latitude, ShouldAlmostEqual, 48.1173, 1e-6)
			So(fix.Position.Longitude, ShouldAlmostEqual, 11.516667, 1e-6)
			So(fix.At, ShouldEqual, at)
		})

		Convey("A valid GGA yields a fix with accuracy from HDOP", func() {
			fix, ok, err := location.ParseSentence(ggaValid, at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(fix.AccuracyM, ShouldAlmostEqual, 4.5, 1e-9)
		})

		Convey("Void RMC and no-fix GGA are skipped without error", func() {
			_, ok, err := location.ParseSentence(rmcVoid, at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			_, ok, err = location.ParseSentence(ggaNoFix, at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Garbage is reported as an error", func() {
			_, ok, err := location.ParseSentence("$GPRMC,broken*00", at)
			So(err, ShouldNotBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Blank lines are ignored", func() {
			_, ok, err := location.ParseSentence("  ", at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNMEASource(t *testing.T) {
	Convey("Given a GPS port carrying mixed sentences", t, func() {
		data := strings.Join([]string{rmcVoid, "junk", rmcValid, ggaNoFix, ggaValid}, "\r\n") + "\r\n"
		src := location.NewNMEASource("/dev/ttyGPS", 9600, location.WithOpener(
			func(port string, baud int) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(data)), nil
			}))

		Convey("When a tracker consumes it", func() {
			tr := location.NewTracker()
			err := tr.Run(context.Background(), src)

			Convey("Then the latest valid fix is kept", func() {
				So(err, ShouldBeNil)
				fix, ok := tr.Current()
				So(ok, ShouldBeTrue)
				So(fix.AccuracyM, ShouldAlmostEqual, 4.5, 1e-9)
			})
		})
	})

	Convey("Given a port that cannot be opened for permission reasons", t, func() {
		src := location.NewNMEASource("/dev/ttyGPS", 9600, location.WithOpener(
			func(string, int) (io.ReadCloser, error) {
				return nil, location.ErrPermissionDenied
			}))

		Convey("When a tracker runs it", func() {
			tr := location.NewTracker()
			err := tr.Run(context.Background(), src)

			Convey("Then the denial is terminal and surfaced", func() {
				So(errors.Is(err, location.ErrPermissionDenied), ShouldBeTrue)
				So(errors.Is(tr.Err(), location.ErrPermissionDenied), ShouldBeTrue)
				_, ok := tr.Current()
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestTrackerUpdate(t *testing.T) {
	Convey("Given a tracker with no fix", t, func() {
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		tr := location.NewTracker(location.WithClock(func() time.Time { return now }))

		_, ok := tr.Current()
		So(ok, ShouldBeFalse)

		Convey("When a valid fix is pushed", func() {
			So(tr.Update(model.Fix{Position: model.Coordinate{Latitude: 36.5, Longitude: -121.9}}), ShouldBeNil)

			Convey("Then it becomes current with a timestamp", func() {
				fix, ok := tr.Current()
				So(ok, ShouldBeTrue)
				So(fix.Position.Latitude, ShouldEqual, 36.5)
				So(fix.At, ShouldEqual, now)
			})
		})

		Convey("When an out of range fix is pushed", func() {
			err := tr.Update(model.Fix{Position: model.Coordinate{Latitude: 120}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, location.ErrInvalidFix), ShouldBeTrue)
				_, ok := tr.Current()
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestSimulatedSource(t *testing.T) {
	Convey("Given a simulated walk in two steps", t, func() {
		from := model.Coordinate{Latitude: 36.5650, Longitude: -121.9480}
		to := model.Coordinate{Latitude: 36.5674, Longitude: -121.9500}
		src := location.SimulatedSource{From: from, To: to, Steps: 2, Interval: time.Millisecond}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fixes, err := src.Stream(ctx)
		So(err, ShouldBeNil)

		Convey("Then it starts at the origin, reaches the destination and stays", func() {
			first := <-fixes
			So(first.Position, ShouldResemble, from)
			mid := <-fixes
			So(mid.Position.Latitude, ShouldAlmostEqual, 36.5662, 1e-9)
			So((<-fixes).Position, ShouldResemble, to)
			So((<-fixes).Position, ShouldResemble, to)
		})

		Convey("Then cancelling closes the stream", func() {
			cancel()
			for range fixes {
			}
			So(ctx.Err(), ShouldNotBeNil)
		})
	})
}

package ble

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/jacktrack/internal/domain/geo"
	"github.com/okian/jacktrack/internal/domain/model"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*model.DeviceEvent
}

func (r *recordingSink) Submit(_ context.Context, e *model.DeviceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) snapshot() []*model.DeviceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.DeviceEvent(nil), r.events...)
}

func (r *recordingSink) kinds(id string) []model.EventKind {
	var out []model.EventKind
	for _, e := range r.snapshot() {
		if e.BallID == id {
			out = append(out, e.Kind)
		}
	}
	return out
}

func TestAdvert(t *testing.T) {
	Convey("Given an encoded advertisement", t, func() {
		in := Advert{Battery: 87, Position: model.Coordinate{Latitude: 36.5674, Longitude: -121.95}}
		data := EncodeAdvert(in)

		Convey("Then it decodes to the same battery and microdegree position", func() {
			out, ok := DecodeAdvert(data)
			So(ok, ShouldBeTrue)
			So(out.Battery, ShouldEqual, 87)
			So(out.Position.Latitude, ShouldAlmostEqual, 36.5674, 1e-6)
			So(out.Position.Longitude, ShouldAlmostEqual, -121.95, 1e-6)
		})

		Convey("Then a truncated payload is rejected", func() {
			_, ok := DecodeAdvert(data[:5])
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a payload with an impossible latitude", t, func() {
		data := EncodeAdvert(Advert{Battery: 10, Position: model.Coordinate{Latitude: 95, Longitude: 0}})

		Convey("Then it is rejected", func() {
			_, ok := DecodeAdvert(data)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("IsBall matches by prefix or by payload", t, func() {
		So(IsBall("JackTrack 3", "JackTrack", false), ShouldBeTrue)
		So(IsBall("Headphones", "JackTrack", false), ShouldBeFalse)
		So(IsBall("", "JackTrack", true), ShouldBeTrue)
		So(IsBall("anything", "", false), ShouldBeFalse)
	})
}

func TestMockScanner(t *testing.T) {
	Convey("Given a mock scanner around a pin", t, func() {
		sink := &recordingSink{}
		centre := model.Coordinate{Latitude: 36.5674, Longitude: -121.95}
		s := NewMockScanner(sink, centre, WithBallCount(3), WithSpread(50), WithSeed(7), WithInterval(10*time.Millisecond))

		Convey("When it runs briefly", func() {
			So(s.Start(context.Background()), ShouldBeNil)
			So(s.Start(context.Background()), ShouldBeNil)
			time.Sleep(50 * time.Millisecond)
			s.Stop()

			Convey("Then every ball was discovered near the centre", func() {
				seen := map[string]bool{}
				for _, e := range sink.snapshot() {
					So(e.Validate(), ShouldBeNil)
					if e.Kind != model.KindDiscovery {
						continue
					}
					seen[e.BallID] = true
					So(e.Position, ShouldNotBeNil)
					So(e.Battery, ShouldNotBeNil)
					So(geo.Distance(centre, *e.Position), ShouldBeLessThanOrEqualTo, 75)
					So(e.Name, ShouldStartWith, "JackTrack")
				}
				So(len(seen), ShouldEqual, 3)
				So(s.IDs(), ShouldHaveLength, 3)
			})

			Convey("Then nothing is emitted after Stop", func() {
				n := len(sink.snapshot())
				time.Sleep(30 * time.Millisecond)
				So(len(sink.snapshot()), ShouldEqual, n)
			})
		})

		Convey("When stopped without starting", func() {
			So(func() { s.Stop() }, ShouldNotPanic)
		})
	})
}

func TestMockConnector(t *testing.T) {
	Convey("Given a mock connector with one failing ball", t, func() {
		sink := &recordingSink{}
		c := NewMockConnector(sink, WithConnectDelay(0), WithFailing("bad"))
		ctx := context.Background()

		Convey("When connecting to both", func() {
			So(c.Connect(ctx, "good"), ShouldBeNil)
			So(c.Connect(ctx, "bad"), ShouldBeNil)
			c.Wait()

			Convey("Then the outcomes are reported", func() {
				So(sink.kinds("good"), ShouldResemble, []model.EventKind{model.KindConnected})
				So(sink.kinds("bad"), ShouldResemble, []model.EventKind{model.KindConnectFailed})
			})
		})

		Convey("When disconnecting", func() {
			So(c.Disconnect(ctx, "good"), ShouldBeNil)
			c.Wait()
			So(sink.kinds("good"), ShouldResemble, []model.EventKind{model.KindDisconnected})
		})

		Convey("When the context is cancelled before the delay elapses", func() {
			slow := NewMockConnector(sink, WithConnectDelay(time.Hour))
			cctx, cancel := context.WithCancel(ctx)
			So(slow.Connect(cctx, "late"), ShouldBeNil)
			cancel()
			slow.Wait()
			So(sink.kinds("late"), ShouldBeEmpty)
		})
	})
}

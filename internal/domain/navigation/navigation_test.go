package navigation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/jacktrack/internal/domain/model"
	"github.com/okian/jacktrack/internal/domain/navigation"
	"github.com/okian/jacktrack/internal/domain/notify"
	"github.com/okian/jacktrack/internal/domain/registry"
	"github.com/okian/jacktrack/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePosition struct {
	mu  sync.Mutex
	fix *model.Fix
	err error
}

func (f *fakePosition) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePosition) Current() (model.Fix, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fix == nil {
		return model.Fix{}, false
	}
	return *f.fix, true
}

func (f *fakePosition) set(c model.Coordinate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fix = &model.Fix{Position: c}
}

var (
	tee = model.Coordinate{Latitude: 36.5650, Longitude: -121.9480}
	pin = model.Coordinate{Latitude: 36.5674, Longitude: -121.9500}
)

func setup(ctx context.Context) (*registry.Registry, *fakePosition, *navigation.Session) {
	reg := registry.New()
	reg.StartScan(ctx)
	reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-1", Position: &pin})
	reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-2", Position: &tee})
	pos := &fakePosition{}
	nav := navigation.New(reg, pos)
	reg.OnRemove(nav.BallRemoved)
	return reg, pos, nav
}

func TestSelectTarget(t *testing.T) {
	Convey("Given a navigation session over two balls", t, func() {
		ctx := context.Background()
		_, _, nav := setup(ctx)

		Convey("When selecting an unknown ball", func() {
			err := nav.SelectTarget(ctx, "ghost")

			Convey("Then it is rejected as an invalid target", func() {
				So(errors.Is(err, types.ErrInvalidTarget), ShouldBeTrue)
				So(types.IsRejectedInput(err), ShouldBeTrue)
				id, _ := nav.Target()
				So(id, ShouldBeEmpty)
			})
		})

		Convey("When navigating without a target", func() {
			err := nav.StartNavigating(ctx)

			Convey("Then it fails with no target", func() {
				So(errors.Is(err, types.ErrNoTarget), ShouldBeTrue)
				So(types.IsPreconditionUnmet(err), ShouldBeTrue)
			})
		})

		Convey("When navigating to ball-1", func() {
			So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
			So(nav.StartNavigating(ctx), ShouldBeNil)
			id, on := nav.Target()
			So(id, ShouldEqual, "ball-1")
			So(on, ShouldBeTrue)

			Convey("Then selecting a different ball stops navigation", func() {
				So(nav.SelectTarget(ctx, "ball-2"), ShouldBeNil)
				id, on := nav.Target()
				So(id, ShouldEqual, "ball-2")
				So(on, ShouldBeFalse)
			})

			Convey("Then re-selecting the same ball keeps navigating", func() {
				So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
				_, on := nav.Target()
				So(on, ShouldBeTrue)
			})

			Convey("Then clearing the selection forces navigation off", func() {
				So(nav.SelectTarget(ctx, ""), ShouldBeNil)
				id, on := nav.Target()
				So(id, ShouldBeEmpty)
				So(on, ShouldBeFalse)
			})

			Convey("Then stopping keeps the selection", func() {
				nav.StopNavigating(ctx)
				nav.StopNavigating(ctx)
				id, on := nav.Target()
				So(id, ShouldEqual, "ball-1")
				So(on, ShouldBeFalse)
			})
		})
	})
}

func TestTargetRemoved(t *testing.T) {
	Convey("Given navigation to ball-1", t, func() {
		ctx := context.Background()
		reg, _, nav := setup(ctx)
		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
		So(nav.StartNavigating(ctx), ShouldBeNil)

		Convey("When the registry removes ball-1", func() {
			So(reg.Remove(ctx, "ball-1"), ShouldBeNil)

			Convey("Then navigation is forced off and the target cleared", func() {
				id, on := nav.Target()
				So(on, ShouldBeFalse)
				So(id, ShouldBeEmpty)
			})

			Convey("Then a repeated removal notice is harmless", func() {
				nav.BallRemoved("ball-1")
				_, on := nav.Target()
				So(on, ShouldBeFalse)
			})
		})

		Convey("When another ball is removed", func() {
			So(reg.Remove(ctx, "ball-2"), ShouldBeNil)

			Convey("Then navigation continues", func() {
				_, on := nav.Target()
				So(on, ShouldBeTrue)
			})
		})
	})

	Convey("Given a session whose resolver loses the target without notice", t, func() {
		ctx := context.Background()
		reg := registry.New()
		reg.StartScan(ctx)
		reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-1", Position: &pin})
		nav := navigation.New(reg, &fakePosition{})
		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
		So(nav.StartNavigating(ctx), ShouldBeNil)
		So(reg.Remove(ctx, "ball-1"), ShouldBeNil)

		Convey("Then reads re-check the target", func() {
			_, on := nav.Target()
			So(on, ShouldBeFalse)
		})
	})
}

func TestUnlocatedBall(t *testing.T) {
	Convey("Given a ball sighted without a position", t, func() {
		ctx := context.Background()
		reg, _, nav := setup(ctx)
		reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-3", Name: "JackTrack 3"})

		Convey("Then it cannot be selected as a target", func() {
			err := nav.SelectTarget(ctx, "ball-3")
			So(errors.Is(err, types.ErrInvalidTarget), ShouldBeTrue)
		})
	})

	Convey("Given a target later re-sighted by name only", t, func() {
		ctx := context.Background()
		reg, pos, nav := setup(ctx)
		pos.set(tee)
		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
		reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-1", Signal: -40})

		Convey("Then the distance still uses the last known position", func() {
			d, err := nav.CurrentDistance(ctx)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 321)
		})
	})
}

func TestLocationDenied(t *testing.T) {
	Convey("Given a target and a location source that was denied", t, func() {
		ctx := context.Background()
		_, pos, nav := setup(ctx)
		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
		pos.mu.Lock()
		pos.err = fmt.Errorf("open gps: %w", types.ErrLocationDenied)
		pos.mu.Unlock()

		Convey("Then distance reports the denial rather than a missing fix", func() {
			_, err := nav.CurrentDistance(ctx)
			So(errors.Is(err, types.ErrLocationDenied), ShouldBeTrue)
			So(types.IsPreconditionUnmet(err), ShouldBeTrue)
			So(nav.Feed(ctx).Unavailable, ShouldEqual, types.ErrLocationDenied.Error())
		})
	})
}

func TestSilentTargetLossPublishes(t *testing.T) {
	Convey("Given a navigating session publishing changes", t, func() {
		ctx := context.Background()
		reg := registry.New()
		reg.StartScan(ctx)
		reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-1", Position: &pin})

		var mu sync.Mutex
		var states []string
		nav := navigation.New(reg, &fakePosition{}, navigation.WithPublisher(notify.Func[types.Change](func(c types.Change) {
			mu.Lock()
			states = append(states, c.State)
			mu.Unlock()
		})))
		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)
		So(nav.StartNavigating(ctx), ShouldBeNil)

		Convey("When the target disappears without notice and is read", func() {
			So(reg.Remove(ctx, "ball-1"), ShouldBeNil)
			_, on := nav.Target()
			So(on, ShouldBeFalse)

			Convey("Then the forced stop is published once", func() {
				mu.Lock()
				defer mu.Unlock()
				So(states, ShouldResemble, []string{"selected", "navigating", "cleared"})
			})
		})
	})
}

func TestCurrentDistance(t *testing.T) {
	Convey("Given a target ball at the pin", t, func() {
		ctx := context.Background()
		reg, pos, nav := setup(ctx)

		Convey("When no target is selected", func() {
			_, err := nav.CurrentDistance(ctx)
			So(errors.Is(err, types.ErrNoTarget), ShouldBeTrue)
		})

		So(nav.SelectTarget(ctx, "ball-1"), ShouldBeNil)

		Convey("When there is no location fix", func() {
			_, err := nav.CurrentDistance(ctx)

			Convey("Then distance is unavailable", func() {
				So(errors.Is(err, types.ErrNoLocationFix), ShouldBeTrue)
				feed := nav.Feed(ctx)
				So(feed.DistanceM, ShouldBeNil)
				So(feed.Unavailable, ShouldEqual, types.ErrNoLocationFix.Error())
			})
		})

		Convey("When the user stands on the tee", func() {
			pos.set(tee)

			Convey("Then the distance is computed from the current fix", func() {
				d, err := nav.CurrentDistance(ctx)
				So(err, ShouldBeNil)
				So(d, ShouldEqual, 321)

				feed := nav.Feed(ctx)
				So(*feed.DistanceM, ShouldEqual, 321)
				So(*feed.DistanceYd, ShouldEqual, 351)
				So(*feed.BearingDeg, ShouldBeBetween, 320, 330)
				So(feed.TargetID, ShouldEqual, "ball-1")
			})

			Convey("Then a new fix is reflected immediately", func() {
				pos.set(pin)
				d, err := nav.CurrentDistance(ctx)
				So(err, ShouldBeNil)
				So(d, ShouldEqual, 0)
			})

			Convey("Then a moved ball is reflected immediately", func() {
				reg.ApplyDiscovery(ctx, &model.DeviceEvent{Kind: model.KindDiscovery, BallID: "ball-1", Position: &tee})
				d, _ := nav.CurrentDistance(ctx)
				So(d, ShouldEqual, 0)
			})
		})
	})
}

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/jacktrack/internal/domain/notify"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with two subscribers", t, func() {
		h := notify.NewHub[string](notify.WithBuffer(2))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		a := h.Subscribe(ctx)
		b := h.Subscribe(ctx)
		So(h.Subscribers(), ShouldEqual, 2)

		Convey("When a value is published", func() {
			h.Publish("ball-1")

			Convey("Then both receive it", func() {
				So(<-a, ShouldEqual, "ball-1")
				So(<-b, ShouldEqual, "ball-1")
			})
		})

		Convey("When a subscriber falls behind", func() {
			h.Publish("1")
			h.Publish("2")
			h.Publish("3")

			Convey("Then publishing does not block and extra values are dropped", func() {
				So(<-a, ShouldEqual, "1")
				So(<-a, ShouldEqual, "2")
				select {
				case v := <-a:
					So(v, ShouldBeEmpty)
				default:
				}
			})
		})

		Convey("When the subscription context ends", func() {
			cancel()

			Convey("Then the channel is closed", func() {
				select {
				case _, ok := <-drain(a):
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("timeout", ShouldBeEmpty)
				}
				So(h.Subscribers(), ShouldEqual, 0)
			})
		})

		Convey("When the hub is closed", func() {
			h.Close()
			_, okA := <-a
			So(okA, ShouldBeFalse)

			Convey("Then new subscriptions are closed immediately", func() {
				_, ok := <-h.Subscribe(context.Background())
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestHubCloseReleasesWatchers(t *testing.T) {
	Convey("Given subscriptions whose contexts never end", t, func() {
		h := notify.NewHub[int]()
		for i := 0; i < 3; i++ {
			h.Subscribe(context.Background())
		}

		Convey("When the hub is closed", func() {
			closed := make(chan struct{})
			go func() {
				h.Close()
				close(closed)
			}()

			Convey("Then Close returns once every watcher has exited", func() {
				select {
				case <-closed:
				case <-time.After(time.Second):
					So("watchers still running", ShouldBeEmpty)
				}
				So(h.Subscribers(), ShouldEqual, 0)
			})
		})
	})
}

func TestFuncPublisher(t *testing.T) {
	Convey("Func adapts a function", t, func() {
		var got []int
		var p notify.Publisher[int] = notify.Func[int](func(v int) { got = append(got, v) })
		p.Publish(1)
		p.Publish(2)
		notify.Discard[int]{}.Publish(3)
		So(got, ShouldResemble, []int{1, 2})
	})
}

// drain returns a channel that yields once ch is closed.
func drain(ch <-chan string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}

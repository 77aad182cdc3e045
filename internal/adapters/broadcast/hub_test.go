package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/cragboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleEvent() model.ResultEvent {
	return model.ResultEvent{
		Climber: "Alex",
		Route:   "Route 1",
		Fields: model.ResultFields{
			TotalAttempts:         2,
			MilestoneAchieved:     true,
			TopAchieved:           true,
			FirstMilestoneAttempt: 1,
			FirstTopAttempt:       2,
		},
		Attempts: []model.Attempt{
			{Number: 1, Milestone: true},
			{Number: 2, Top: true},
		},
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func dial(srv *httptest.Server) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHubWebsocket(t *testing.T) {
	Convey("Given a hub served over HTTP", t, func() {
		hub := NewHub(WithTerminology(model.NewTerminology("Zone")))
		srv := httptest.NewServer(hub)
		Reset(func() {
			srv.Close()
			_ = hub.Close()
		})

		Convey("When two viewers connect and a result is published", func() {
			c1, err := dial(srv)
			So(err, ShouldBeNil)
			defer c1.Close()
			c2, err := dial(srv)
			So(err, ShouldBeNil)
			defer c2.Close()
			So(waitFor(func() bool { return hub.Subscribers() == 2 }), ShouldBeTrue)

			So(hub.Publish(context.Background(), sampleEvent()), ShouldBeNil)

			Convey("Then both receive the framed newResult message", func() {
				want := `{"event":"newResult","data":{"climber":"Alex","route":"Route 1","totalAttempts":2,` +
					`"zoneAchieved":true,"topAchieved":true,"firstZoneAttempt":1,"firstTopAttempt":2,` +
					`"attempts":[{"number":1,"zone":true,"top":false},{"number":2,"zone":false,"top":true}]}}`
				for _, c := range []*websocket.Conn{c1, c2} {
					_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
					_, msg, err := c.ReadMessage()
					So(err, ShouldBeNil)
					So(string(msg), ShouldEqual, want)
				}
			})
		})

		Convey("When a viewer disconnects", func() {
			c, err := dial(srv)
			So(err, ShouldBeNil)
			So(waitFor(func() bool { return hub.Subscribers() == 1 }), ShouldBeTrue)
			So(c.Close(), ShouldBeNil)

			Convey("Then it is unregistered", func() {
				So(waitFor(func() bool { return hub.Subscribers() == 0 }), ShouldBeTrue)
			})
		})

		Convey("When the hub is closed", func() {
			c, err := dial(srv)
			So(err, ShouldBeNil)
			defer c.Close()
			So(waitFor(func() bool { return hub.Subscribers() == 1 }), ShouldBeTrue)
			So(hub.Close(), ShouldBeNil)

			Convey("Then viewers are disconnected and publishing fails", func() {
				_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err := c.ReadMessage()
				So(err, ShouldNotBeNil)
				So(hub.Subscribers(), ShouldEqual, 0)
				So(hub.Publish(context.Background(), sampleEvent()), ShouldEqual, ErrHubClosed)
			})
		})
	})
}

func TestHubSlowSubscriber(t *testing.T) {
	Convey("Given a hub with a one-message buffer", t, func() {
		hub := NewHub(WithSendBuffer(1))
		slow := &subscriber{id: "slow", send: make(chan []byte, 1)}
		fast := &subscriber{id: "fast", send: make(chan []byte, 1)}
		So(hub.add(slow), ShouldBeTrue)
		So(hub.add(fast), ShouldBeTrue)

		Convey("When the slow viewer does not drain its buffer", func() {
			So(hub.Broadcast([]byte("one")), ShouldBeNil)
			<-fast.send
			So(hub.Broadcast([]byte("two")), ShouldBeNil)

			Convey("Then only the slow viewer is dropped", func() {
				So(hub.Subscribers(), ShouldEqual, 1)
				msg, ok := <-slow.send
				So(ok, ShouldBeTrue)
				So(string(msg), ShouldEqual, "one")
				_, ok = <-slow.send
				So(ok, ShouldBeFalse)
				So(string(<-fast.send), ShouldEqual, "two")
			})
		})

		Convey("Publishing never blocks the caller", func() {
			done := make(chan struct{})
			go func() {
				for i := 0; i < 100; i++ {
					_ = hub.Broadcast([]byte("x"))
				}
				close(done)
			}()
			select {
			case <-done:
				So(true, ShouldBeTrue)
			case <-time.After(time.Second):
				So("broadcast blocked", ShouldBeEmpty)
			}
		})
	})
}

func TestHubOrigins(t *testing.T) {
	Convey("Given a hub restricted to one origin", t, func() {
		hub := NewHub(WithAllowedOrigins("https://wall.example"))
		srv := httptest.NewServer(hub)
		Reset(srv.Close)

		Convey("Then a foreign origin is refused", func() {
			url := "ws" + strings.TrimPrefix(srv.URL, "http")
			_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://evil.example"}})
			So(err, ShouldNotBeNil)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, 403)
		})
	})
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/cragboard/internal/app"
	repository "github.com/okian/cragboard/internal/adapters/repository"
	"github.com/okian/cragboard/internal/domain/attempts"
	"github.com/okian/cragboard/internal/domain/model"
	"github.com/okian/cragboard/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var fixed = time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func seq(flags ...string) []model.Attempt {
	out := make([]model.Attempt, len(flags))
	for i, f := range flags {
		out[i] = model.Attempt{Number: i + 1, Milestone: f == "m" || f == "mt", Top: f == "t" || f == "mt"}
	}
	return out
}

// flakyStore wraps a MemStore and fails appends on demand.
type flakyStore struct {
	*repository.MemStore
	failAppend atomic.Bool
	failList   atomic.Bool
}

func (f *flakyStore) Append(ctx context.Context, r model.Result) error {
	if f.failAppend.Load() {
		return errors.New("disk full")
	}
	return f.MemStore.Append(ctx, r)
}

func (f *flakyStore) ListAll(ctx context.Context) ([]model.Result, error) {
	if f.failList.Load() {
		return nil, errors.New("unreadable")
	}
	return f.MemStore.ListAll(ctx)
}

type capture struct {
	mu  sync.Mutex
	got []model.ResultEvent
	ch  chan struct{}
}

func newCapture() *capture { return &capture{ch: make(chan struct{}, 64)} }

func (c *capture) Publish(_ context.Context, ev model.ResultEvent) error {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
	c.ch <- struct{}{}
	return nil
}

func (c *capture) wait() bool {
	select {
	case <-c.ch:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func (c *capture) events() []model.ResultEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ResultEvent(nil), c.got...)
}

type staticRoster struct {
	climbers []string
	err      error
}

func (r *staticRoster) Climbers(context.Context) ([]string, error) { return r.climbers, r.err }

func (r *staticRoster) Replace(_ context.Context, rd io.Reader) (int, error) {
	b, err := io.ReadAll(rd)
	if err != nil {
		return 0, err
	}
	r.climbers = []string{string(b)}
	return 1, nil
}

func started(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithClock(clock)}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it has the default routes and label", func() {
			So(svc.Routes(), ShouldResemble, []string{"Route 1", "Route 2", "Route 3", "Route 4", "Route 5", "Route 6"})
			So(svc.Terminology().Label(), ShouldEqual, "Bonus")
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then Submit refuses to run before Start", func() {
			_, err := svc.Submit(context.Background(), "A", "R1", seq())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithRoutes([]string{"Slab", "Roof"}),
			service.WithTerminology(model.NewTerminology("zone")),
			service.WithWorkerCount(2),
			service.WithQueueSize(10),
		)

		Convey("Then the options apply", func() {
			So(svc.Routes(), ShouldResemble, []string{"Slab", "Roof"})
			So(svc.Terminology().Label(), ShouldEqual, "Zone")
			So(svc.GetStats()["workerCount"], ShouldEqual, 2)
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		pub := newCapture()
		svc := started(service.WithStore(store), service.WithPublisher(pub))
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When a valid sequence is submitted", func() {
			r, err := svc.Submit(ctx, "Alex", "Route 1", seq("-", "m", "t"))

			Convey("Then the aggregated result is stored and returned", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, model.Result{
					Timestamp: "2024-05-04T12:00:00.000Z",
					Climber:   "Alex",
					Route:     "Route 1",
					ResultFields: model.ResultFields{
						TotalAttempts: 3, MilestoneAchieved: true, TopAchieved: true,
						FirstMilestoneAttempt: 2, FirstTopAttempt: 3,
					},
				})
				all, _ := store.ListAll(ctx)
				So(all, ShouldResemble, []model.Result{r})
			})

			Convey("Then the event is broadcast with the original attempts", func() {
				So(pub.wait(), ShouldBeTrue)
				evs := pub.events()
				So(len(evs), ShouldEqual, 1)
				So(evs[0].Climber, ShouldEqual, "Alex")
				So(evs[0].Attempts, ShouldResemble, seq("-", "m", "t"))
				So(evs[0].Fields.FirstTopAttempt, ShouldEqual, model.AttemptIndex(3))
			})

			Convey("Then a second submission for the pair is a duplicate", func() {
				_, err := svc.Submit(ctx, "Alex", "Route 1", seq("m", "t"))
				So(errors.Is(err, service.ErrDuplicateSubmission), ShouldBeTrue)
				all, _ := store.ListAll(ctx)
				So(len(all), ShouldEqual, 1)
			})
		})

		Convey("When fields are missing", func() {
			cases := []struct {
				climber, route string
				seq            []model.Attempt
			}{
				{"", "Route 1", seq()},
				{"Alex", "", seq()},
				{"   ", "Route 1", seq()},
				{"Alex", "Route 1", nil},
			}
			for _, c := range cases {
				_, err := svc.Submit(ctx, c.climber, c.route, c.seq)
				So(errors.Is(err, service.ErrMissingFields), ShouldBeTrue)
			}

			Convey("Then nothing is stored", func() {
				all, _ := store.ListAll(ctx)
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When an empty attempt list is submitted", func() {
			r, err := svc.Submit(ctx, "Alex", "Route 2", []model.Attempt{})

			Convey("Then a zero-attempt result is stored", func() {
				So(err, ShouldBeNil)
				So(r.TotalAttempts, ShouldEqual, 0)
				So(r.FirstMilestoneAttempt.IsSet(), ShouldBeFalse)
			})
		})

		Convey("When a top comes before any milestone", func() {
			_, err := svc.Submit(ctx, "A", "R1", []model.Attempt{{Number: 1, Top: true}})

			Convey("Then it is rejected with the attempt number and nothing is written", func() {
				So(errors.Is(err, service.ErrInvalidSequence), ShouldBeTrue)
				var se *attempts.SequenceError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Attempt, ShouldEqual, 1)
				all, _ := store.ListAll(ctx)
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When names carry surrounding spaces", func() {
			r, err := svc.Submit(ctx, "  Alex ", " Route 1", seq("m"))
			So(err, ShouldBeNil)

			Convey("Then they are stored trimmed and match later submissions", func() {
				So(r.Climber, ShouldEqual, "Alex")
				So(r.Route, ShouldEqual, "Route 1")
				_, err := svc.Submit(ctx, "Alex", "Route 1", seq())
				So(errors.Is(err, service.ErrDuplicateSubmission), ShouldBeTrue)
			})
		})

		Convey("When many goroutines submit the same pair at once", func() {
			var saved, dup atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Submit(ctx, "Alex", "Route 4", seq("m", "t"))
					switch {
					case err == nil:
						saved.Add(1)
					case errors.Is(err, service.ErrDuplicateSubmission):
						dup.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one is saved", func() {
				So(saved.Load(), ShouldEqual, 1)
				So(dup.Load(), ShouldEqual, 31)
				all, _ := store.ListAll(ctx)
				So(len(all), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a service whose store fails appends", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemStore: repository.NewMemStore()}
		store.failAppend.Store(true)
		pub := newCapture()
		svc := started(service.WithStore(store), service.WithPublisher(pub))
		Reset(func() { _ = svc.Stop(ctx) })

		_, err := svc.Submit(ctx, "Alex", "Route 1", seq("m", "t"))

		Convey("Then the failure is reported and nothing is broadcast", func() {
			So(errors.Is(err, service.ErrStorageFailure), ShouldBeTrue)
			So(pub.events(), ShouldBeEmpty)
		})

		Convey("Then the pair can be retried once storage recovers", func() {
			store.failAppend.Store(false)
			_, err := svc.Submit(ctx, "Alex", "Route 1", seq("m", "t"))
			So(err, ShouldBeNil)
		})
	})

	Convey("Given a service with a same-attempt milestone policy", t, func() {
		ctx := context.Background()
		svc := started(service.WithSameAttemptMilestone(true))
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("Then a flash reporting both flags is accepted", func() {
			r, err := svc.Submit(ctx, "Alex", "Route 1", seq("mt"))
			So(err, ShouldBeNil)
			So(r.FirstTopAttempt, ShouldEqual, model.AttemptIndex(1))
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a store that already holds results", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		So(store.Append(ctx, model.NewResult(fixed, "Alex", "Route 1", model.ResultFields{TotalAttempts: 2, TopAchieved: true, MilestoneAchieved: true, FirstMilestoneAttempt: 1, FirstTopAttempt: 2})), ShouldBeNil)
		svc := started(service.WithStore(store))
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("Then the stored pairs are claimed and counted", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["claimedPairs"], ShouldEqual, int64(1))
			So(stats["results"], ShouldEqual, int64(1))
			So(stats["tops"], ShouldEqual, int64(1))
		})

		Convey("Then Start is idempotent", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("Then Stop closes the store", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			_, err := store.ListAll(ctx)
			So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
		})
	})

	Convey("Given a store that cannot be read at start", t, func() {
		ctx := context.Background()
		store := &flakyStore{MemStore: repository.NewMemStore()}
		store.failList.Store(true)
		svc := service.New(service.WithStore(store))

		Convey("Then Start still succeeds", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Queries(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		svc := started()
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("Then every query returns an empty collection", func() {
			lb, err := svc.Leaderboard(ctx)
			So(err, ShouldBeNil)
			So(lb, ShouldBeEmpty)

			sum, err := svc.Summary(ctx)
			So(err, ShouldBeNil)
			So(sum, ShouldNotBeNil)
			So(sum, ShouldBeEmpty)

			sub, err := svc.Submitted(ctx)
			So(err, ShouldBeNil)
			So(sub, ShouldNotBeNil)
			So(sub, ShouldBeEmpty)
		})

		Convey("When A submits R1 and R2", func() {
			_, err := svc.Submit(ctx, "A", "R1", seq("m"))
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "A", "R2", seq())
			So(err, ShouldBeNil)

			Convey("Then the summary lists both routes", func() {
				sum, err := svc.Summary(ctx)
				So(err, ShouldBeNil)
				So(sum, ShouldResemble, []types.SummaryEntry{{Climber: "A", Routes: []string{"R1", "R2"}, Count: 2}})
			})
		})

		Convey("When several climbers submit interleaved", func() {
			for _, p := range [][2]string{{"B", "R1"}, {"A", "R1"}, {"B", "R2"}, {"C", "R3"}, {"A", "R3"}} {
				_, err := svc.Submit(ctx, p[0], p[1], seq())
				So(err, ShouldBeNil)
			}

			Convey("Then climbers keep first-appearance order", func() {
				sum, _ := svc.Summary(ctx)
				So(len(sum), ShouldEqual, 3)
				So(sum[0], ShouldResemble, types.SummaryEntry{Climber: "B", Routes: []string{"R1", "R2"}, Count: 2})
				So(sum[1], ShouldResemble, types.SummaryEntry{Climber: "A", Routes: []string{"R1", "R3"}, Count: 2})
				So(sum[2], ShouldResemble, types.SummaryEntry{Climber: "C", Routes: []string{"R3"}, Count: 1})
			})

			Convey("Then submitted pairs follow store order", func() {
				sub, _ := svc.Submitted(ctx)
				So(len(sub), ShouldEqual, 5)
				So(sub[0], ShouldResemble, types.SubmittedPair{Climber: "B", Route: "R1"})
				So(sub[4], ShouldResemble, types.SubmittedPair{Climber: "A", Route: "R3"})
			})

			Convey("Then repeated leaderboard reads are identical", func() {
				a, _ := svc.Leaderboard(ctx)
				b, _ := svc.Leaderboard(ctx)
				So(a, ShouldResemble, b)
			})
		})
	})

	Convey("Given a roster", t, func() {
		ctx := context.Background()

		Convey("When it is readable", func() {
			svc := service.New(service.WithRoster(&staticRoster{climbers: []string{"Alex", "Sam"}}))
			d, err := svc.Data(ctx)

			Convey("Then Data combines climbers and routes", func() {
				So(err, ShouldBeNil)
				So(d.Climbers, ShouldResemble, []string{"Alex", "Sam"})
				So(len(d.Routes), ShouldEqual, 6)
			})
		})

		Convey("When it fails", func() {
			svc := service.New(service.WithRoster(&staticRoster{err: fmt.Errorf("gone")}))
			_, err := svc.Data(ctx)

			Convey("Then Data reports the roster unavailable", func() {
				So(errors.Is(err, service.ErrRosterUnavailable), ShouldBeTrue)
			})
		})

		Convey("When none is configured", func() {
			svc := service.New()
			_, err := svc.Data(ctx)
			So(errors.Is(err, service.ErrRosterUnavailable), ShouldBeTrue)
			_, err = svc.ReplaceRoster(ctx, nil)
			So(errors.Is(err, service.ErrRosterUnavailable), ShouldBeTrue)
		})
	})
}

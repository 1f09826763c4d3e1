package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	service "github.com/okian/dilemma/internal/app"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// newService returns a started service whose dispatcher runs the
// tournament before CreateTournament returns.
func newService(store repository.Store, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithStore(store)}, opts...)...)
	svc.SetDispatcher(service.DispatcherFunc(svc.RunTournament))
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func register(svc *service.Service, players ...model.Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		saved, err := svc.RegisterPlayer(context.Background(), p)
		So(err, ShouldBeNil)
		ids = append(ids, saved.ID)
	}
	return ids
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then tournaments are refused", func() {
			_, err := svc.CreateTournament(ctx, "cup", []string{"a", "b"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a started service without a dispatcher", t, func() {
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then tournaments are refused", func() {
			_, err := svc.CreateTournament(ctx, "cup", []string{"a", "b"})
			So(errors.Is(err, service.ErrNoDispatcher), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})
	})
}

func TestService_RegisterPlayer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service", t, func() {
		svc := newService(repository.NewMemoryStore())

		Convey("Then a builtin player gets an id", func() {
			p, err := svc.RegisterPlayer(ctx, model.Player{Name: " amy ", FunctionName: strategy.TitForTat})
			So(err, ShouldBeNil)
			So(p.ID, ShouldNotBeEmpty)
			So(p.Name, ShouldEqual, "amy")

			got, err := svc.Players(ctx, []string{p.ID})
			So(err, ShouldBeNil)
			So(got[0].FunctionName, ShouldEqual, strategy.TitForTat)
		})

		Convey("Then incomplete or unresolvable players are rejected", func() {
			_, err := svc.RegisterPlayer(ctx, model.Player{FunctionName: strategy.TitForTat})
			So(errors.Is(err, service.ErrInvalidPlayer), ShouldBeTrue)

			_, err = svc.RegisterPlayer(ctx, model.Player{Name: "x"})
			So(errors.Is(err, service.ErrInvalidPlayer), ShouldBeTrue)

			_, err = svc.RegisterPlayer(ctx, model.Player{Name: "x", FunctionName: "mystery"})
			So(errors.Is(err, service.ErrInvalidPlayer), ShouldBeTrue)
			So(errors.Is(err, strategy.ErrUnknownStrategy), ShouldBeTrue)
		})
	})
}

func TestService_CreateTournament_Validation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with one registered player", t, func() {
		svc := newService(repository.NewMemoryStore())
		ids := register(svc, model.Player{ID: "a", Name: "amy", FunctionName: strategy.AlwaysDefect})

		Convey("Then fewer than two players is refused", func() {
			_, err := svc.CreateTournament(ctx, "solo", ids)
			So(errors.Is(err, service.ErrInvalidTournament), ShouldBeTrue)
		})

		Convey("Then a repeated player is refused", func() {
			_, err := svc.CreateTournament(ctx, "mirror", []string{"a", "a"})
			So(errors.Is(err, service.ErrInvalidTournament), ShouldBeTrue)
		})

		Convey("Then players sharing a name are refused", func() {
			register(svc,
				model.Player{ID: "b1", Name: "bob", FunctionName: strategy.AlwaysCooperate},
				model.Player{ID: "b2", Name: "bob", FunctionName: strategy.AlwaysCooperate},
			)
			_, err := svc.CreateTournament(ctx, "twins", []string{"a", "b1", "b2"})
			So(errors.Is(err, service.ErrInvalidTournament), ShouldBeTrue)
			So(errors.Is(err, service.ErrDuplicateName), ShouldBeTrue)

			_, err = svc.CreateTournament(ctx, "pair", []string{"a", "b1"})
			So(err, ShouldBeNil)
		})

		Convey("Then an unknown player is refused", func() {
			_, err := svc.CreateTournament(ctx, "ghost", []string{"a", "ghost"})
			So(errors.Is(err, service.ErrInvalidTournament), ShouldBeTrue)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_AllCooperators(t *testing.T) {
	ctx := context.Background()

	Convey("Given two always-cooperate players over 100 repetitions", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(store, service.WithSeed(7))
		ids := register(svc,
			model.Player{ID: "b", Name: "bo", FunctionName: strategy.AlwaysCooperate, ShortTactic: "nice"},
			model.Player{ID: "a", Name: "amy", FunctionName: strategy.AlwaysCooperate, ShortTactic: "nicer"},
		)

		sess, err := svc.CreateTournament(ctx, "friendly", ids)
		So(err, ShouldBeNil)

		Convey("Then the session is finished with both players tied", func() {
			So(sess.Status, ShouldEqual, model.StatusFinished)
			So(sess.Results, ShouldNotBeNil)

			lb := sess.Results.Leaderboard
			So(len(lb), ShouldEqual, 2)
			So(lb[0].Score, ShouldEqual, lb[1].Score)
			So(lb[0].Score, ShouldBeGreaterThanOrEqualTo, 3*100)
			So(lb[0].Score%3, ShouldEqual, 0)
			So(lb[0].PlayerID, ShouldEqual, "a")
			So(lb[0].ShortTactic, ShouldEqual, "nicer")
		})

		Convey("Then the matrix is symmetric", func() {
			m := sess.Results.Matrix
			So(m["amy"]["bo"], ShouldEqual, m["bo"]["amy"])
			So(m["amy"]["amy"], ShouldEqual, 0)
		})

		Convey("Then no match records are left behind", func() {
			left, err := store.MatchIDs(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(left, ShouldBeEmpty)

			polled, err := svc.Tournament(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(polled.Results, ShouldNotBeNil)
			So(polled.Results.Leaderboard, ShouldNotBeEmpty)
		})

		Convey("Then the run is counted", func() {
			stats := svc.GetStats()
			So(stats["finished_runs"], ShouldEqual, int64(1))
			So(stats["active_runs"], ShouldEqual, int64(0))
			So(stats["pending_matches"], ShouldEqual, 0)
		})
	})
}

func TestService_ClassicTrio(t *testing.T) {
	ctx := context.Background()

	Convey("Given cooperate, defect and tit-for-tat over fixed 100-round matches", t, func() {
		svc := newService(repository.NewMemoryStore(),
			service.WithRepetitions(10),
			service.WithMatchOptions(match.WithEndProbability(0), match.WithMaxRounds(100)),
		)
		ids := register(svc,
			model.Player{ID: "1", Name: "coop", FunctionName: strategy.AlwaysCooperate},
			model.Player{ID: "2", Name: "defect", FunctionName: strategy.AlwaysDefect},
			model.Player{ID: "3", Name: "tft", FunctionName: strategy.TitForTat},
		)

		sess, err := svc.CreateTournament(ctx, "classic", ids)
		So(err, ShouldBeNil)
		So(sess.Results, ShouldNotBeNil)

		Convey("Then always-defect takes the most from always-cooperate", func() {
			m := sess.Results.Matrix
			So(m["defect"]["coop"], ShouldEqual, 5000)
			So(m["coop"]["defect"], ShouldEqual, 0)
			So(m["defect"]["coop"], ShouldBeGreaterThan, m["tft"]["coop"])
		})

		Convey("Then tit-for-tat earns more with a cooperator than always-defect does with it", func() {
			m := sess.Results.Matrix
			So(m["tft"]["coop"], ShouldEqual, 3000)
			So(m["defect"]["tft"], ShouldEqual, 1040)
			So(m["tft"]["defect"], ShouldEqual, 990)
			So(m["tft"]["coop"], ShouldBeGreaterThanOrEqualTo, m["defect"]["tft"])
		})

		Convey("Then the leaderboard ranks by total", func() {
			want := model.Leaderboard{
				{PlayerID: "2", Name: "defect", Score: 6040},
				{PlayerID: "3", Name: "tft", Score: 3990},
				{PlayerID: "1", Name: "coop", Score: 3000},
			}
			So(cmp.Diff(want, sess.Results.Leaderboard), ShouldBeEmpty)
		})
	})
}

func TestService_Replay(t *testing.T) {
	ctx := context.Background()

	run := func(seed uint64) model.Results {
		svc := newService(repository.NewMemoryStore(), service.WithSeed(seed), service.WithRepetitions(20))
		ids := register(svc,
			model.Player{ID: "1", Name: "grudge", FunctionName: strategy.Grudger},
			model.Player{ID: "2", Name: "pavlov", FunctionName: strategy.Pavlov},
			model.Player{ID: "3", Name: "sus", FunctionName: strategy.SuspiciousTitForTat},
		)
		sess, err := svc.CreateTournament(ctx, "replay", ids)
		So(err, ShouldBeNil)
		So(sess.Results, ShouldNotBeNil)
		return *sess.Results
	}

	Convey("Given two runs with the same seed", t, func() {
		first, second := run(42), run(42)

		Convey("Then the results are identical", func() {
			So(cmp.Diff(first, second), ShouldBeEmpty)
		})
	})
}

func TestService_Dispatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service whose dispatcher only records calls", t, func() {
		var (
			mu    sync.Mutex
			calls []string
			fail  = true
		)
		store := repository.NewMemoryStore()
		svc := service.New(service.WithStore(store))
		svc.SetDispatcher(service.DispatcherFunc(func(_ context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, id)
			return nil
		}))
		So(svc.Start(ctx), ShouldBeNil)
		ids := register(svc,
			model.Player{ID: "a", Name: "amy", FunctionName: strategy.AlwaysDefect},
			model.Player{ID: "b", Name: "bo", FunctionName: strategy.AlwaysDefect},
		)

		sess, err := svc.CreateTournament(ctx, "queued", ids)
		So(err, ShouldBeNil)
		So(sess.Status, ShouldEqual, model.StatusStarted)
		So(sess.PlayerIDs, ShouldResemble, ids)

		Convey("Then dispatching the same session again is suppressed", func() {
			err := svc.Dispatch(ctx, sess.ID)
			So(errors.Is(err, service.ErrDuplicateRun), ShouldBeTrue)
			So(service.IsDuplicate(err), ShouldBeTrue)
			So(calls, ShouldResemble, []string{sess.ID})
		})

		Convey("Then an unknown session cannot be dispatched", func() {
			err := svc.Dispatch(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the dispatcher fails once", func() {
			flaky := service.New(service.WithStore(store))
			flaky.SetDispatcher(service.DispatcherFunc(func(context.Context, string) error {
				if fail {
					fail = false
					return errors.New("broker down")
				}
				return nil
			}))
			So(flaky.Start(ctx), ShouldBeNil)

			err := flaky.Dispatch(ctx, sess.ID)
			So(err, ShouldNotBeNil)

			Convey("Then the session can be dispatched again", func() {
				So(flaky.Dispatch(ctx, sess.ID), ShouldBeNil)
			})
		})
	})
}

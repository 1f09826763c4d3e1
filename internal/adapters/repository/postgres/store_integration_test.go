//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/adapters/repository/postgres"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dilemma"),
		tcpostgres.WithUsername("dilemma"),
		tcpostgres.WithPassword("dilemma"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn
}

func TestStore(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}
	dsn := startPostgres(t)
	ctx := context.Background()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// second run is a no-op
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate twice: %v", err)
	}

	Convey("Given players and a session", t, func() {
		So(store.SavePlayer(ctx, model.Player{ID: "p1", Name: "amy", FunctionName: "tit_for_tat", ShortTactic: "mirror"}), ShouldBeNil)
		So(store.SavePlayer(ctx, model.Player{ID: "p2", Name: "bo", FunctionName: "always_defect"}), ShouldBeNil)

		sid := fmt.Sprintf("session-%d", time.Now().UnixNano())
		So(store.CreateSession(ctx, model.Session{ID: sid, Name: "cup", PlayerIDs: []string{"p1", "p2"}}), ShouldBeNil)

		Convey("Then the roster and session round-trip", func() {
			ps, err := store.Players(ctx, []string{"p2", "p1"})
			So(err, ShouldBeNil)
			So(ps[0].Name, ShouldEqual, "bo")
			So(ps[1].ShortTactic, ShouldEqual, "mirror")

			sess, err := store.Session(ctx, sid)
			So(err, ShouldBeNil)
			So(sess.Status, ShouldEqual, model.StatusStarted)
			So(sess.PlayerIDs, ShouldResemble, []string{"p1", "p2"})

			So(errors.Is(store.CreateSession(ctx, model.Session{ID: sid}), repository.ErrDuplicate), ShouldBeTrue)
			_, err = store.Players(ctx, []string{"nobody"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When matches with rounds are saved and results published", func() {
			for i := 0; i < 3; i++ {
				m := model.Match{
					ID:           fmt.Sprintf("%s-m%d", sid, i),
					SessionID:    sid,
					HomePlayerID: "p1",
					AwayPlayerID: "p2",
					HomeScore:    i,
					AwayScore:    5,
					RoundCount:   1,
					Rounds:       []model.Round{{Number: 1, HomeChoice: model.Cooperate, AwayChoice: model.Defect}},
				}
				So(store.SaveMatch(ctx, m), ShouldBeNil)
			}
			So(store.UpdateStatus(ctx, sid, model.ProgressStatus(50)), ShouldBeNil)

			ms, err := store.Matches(ctx, sid)
			So(err, ShouldBeNil)
			So(len(ms), ShouldEqual, 3)

			rounds, err := store.Rounds(ctx, ms[0].ID)
			So(err, ShouldBeNil)
			So(rounds, ShouldResemble, []model.Round{{Number: 1, HomeChoice: model.Cooperate, AwayChoice: model.Defect}})

			want := model.Results{
				Leaderboard: model.Leaderboard{
					{Name: "bo", Score: 15, ShortTactic: ""},
					{Name: "amy", Score: 3, ShortTactic: "mirror"},
				},
				Matrix: model.Matrix{"amy": {"bo": 3}, "bo": {"amy": 15}},
			}
			So(store.PublishResults(ctx, sid, want), ShouldBeNil)

			ids, err := store.MatchIDs(ctx, sid)
			So(err, ShouldBeNil)
			n, err := store.DeleteMatches(ctx, ids)
			So(err, ShouldBeNil)

			Convey("Then results keep their order and the rows are gone", func() {
				So(n, ShouldEqual, 3)
				sess, err := store.Session(ctx, sid)
				So(err, ShouldBeNil)
				So(sess.Status, ShouldEqual, model.StatusFinished)
				So(cmp.Diff(want, *sess.Results), ShouldBeEmpty)

				left, err := store.MatchIDs(ctx, sid)
				So(err, ShouldBeNil)
				So(left, ShouldBeEmpty)
				rounds, err := store.Rounds(ctx, ids[0])
				So(err, ShouldBeNil)
				So(rounds, ShouldBeEmpty)

				err = store.UpdateStatus(ctx, sid, model.ProgressStatus(99))
				So(errors.Is(err, repository.ErrSessionFinished), ShouldBeTrue)
			})
		})
	})
}

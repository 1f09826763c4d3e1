package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/dilemma/internal/config"
	"github.com/okian/dilemma/pkg/logger"
)

const testRoster = `players:
  - id: coop
    name: coop
    function_name: always_cooperate
  - id: tft
    name: tft
    function_name: tit_for_tat
    short_tactic: mirror
  - id: gen
    name: gen
    function_name: generated
    code: |
      func Decide(history [][2]string) string { return "defect" }
`

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func writeRoster(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestBuild(t *testing.T) {
	convey.Convey("Given an in-memory configuration with a roster", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New(ctx)
		cfg.Repetitions = 3
		cfg.RosterPath = writeRoster(t, testRoster)
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		c, err := build(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer c.shutdown(context.Background())

		convey.Convey("Then the roster players are registered", func() {
			w := serve(c.handlers, http.MethodGet, "/players/coop,tft,gen", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"short_tactic":"mirror"`)
		})

		convey.Convey("Then the docs are served", func() {
			convey.So(serve(c.handlers, http.MethodGet, "/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(c.handlers, http.MethodGet, "/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When a tournament is created over HTTP", func() {
			w := serve(c.handlers, http.MethodPost, "/tournaments", `{"name":"boot","player_ids":["coop","tft","gen"]}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)

			var created struct {
				SessionID string `json:"session_id"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &created), convey.ShouldBeNil)

			convey.Convey("Then it runs in the background and finishes", func() {
				var body string
				deadline := time.Now().Add(10 * time.Second)
				for time.Now().Before(deadline) {
					body = serve(c.handlers, http.MethodGet, "/tournaments/"+created.SessionID, "").Body.String()
					if strings.Contains(body, `"results"`) {
						break
					}
					time.Sleep(20 * time.Millisecond)
				}
				convey.So(body, convey.ShouldContainSubstring, `"leaderboard"`)
				convey.So(body, convey.ShouldContainSubstring, `"gen"`)
			})
		})
	})

	convey.Convey("Given a roster that does not exist", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.RosterPath = filepath.Join(t.TempDir(), "missing.yaml")

		convey.Convey("Then build fails", func() {
			_, err := build(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a roster with an unknown strategy", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.RosterPath = writeRoster(t, "players:\n  - id: x\n    name: x\n    function_name: mystery\n")

		convey.Convey("Then build fails", func() {
			_, err := build(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then an update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}

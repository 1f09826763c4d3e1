package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.matchesPlayed.Inc()

			Convey("Then metrics are registered under the configured names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_matches_played_total"], ShouldBeTrue)

				n, err := testutil.GatherAndCount(registry, "test_unit_matches_played_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When two managers share one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestTournamentMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		m := globalManager

		Convey("When a tournament starts and finishes", func() {
			active := testutil.ToFloat64(m.tournamentsActive)
			started := testutil.ToFloat64(m.tournamentsStarted)

			RecordTournamentStarted()
			So(testutil.ToFloat64(m.tournamentsActive), ShouldEqual, active+1)

			RecordTournamentFinished(120)
			So(testutil.ToFloat64(m.tournamentsActive), ShouldEqual, active)
			So(testutil.ToFloat64(m.tournamentsStarted), ShouldEqual, started+1)
		})

		Convey("When a tournament fails", func() {
			before := testutil.ToFloat64(m.tournamentsFailed.WithLabelValues("resolve"))
			RecordTournamentStarted()
			RecordTournamentFailed("resolve")
			So(testutil.ToFloat64(m.tournamentsFailed.WithLabelValues("resolve")), ShouldEqual, before+1)
		})

		Convey("When a match is played", func() {
			matches := testutil.ToFloat64(m.matchesPlayed)
			rounds := testutil.ToFloat64(m.roundsPlayed)

			RecordMatchPlayed(212)

			So(testutil.ToFloat64(m.matchesPlayed), ShouldEqual, matches+1)
			So(testutil.ToFloat64(m.roundsPlayed), ShouldEqual, rounds+212)
		})

		Convey("When strategies forfeit", func() {
			before := testutil.ToFloat64(m.strategyForfeits.WithLabelValues("timeout"))
			RecordStrategyForfeit("timeout")
			RecordStrategyForfeit("timeout")
			So(testutil.ToFloat64(m.strategyForfeits.WithLabelValues("timeout")), ShouldEqual, before+2)
		})

		Convey("When cleanup removes rows", func() {
			before := testutil.ToFloat64(m.cleanupDeleted)
			RecordCleanupDeleted(1000)
			RecordCleanupDeleted(37)
			So(testutil.ToFloat64(m.cleanupDeleted), ShouldEqual, before+1037)
		})
	})
}

func TestOperationalMetrics(t *testing.T) {
	Convey("Given operational recorders", t, func() {
		Convey("Then queue and worker gauges follow updates", func() {
			UpdateQueueCapacity(64)
			UpdateQueueSize(10)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 64)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 10)

			before := testutil.ToFloat64(globalManager.workerActiveCount)
			AddWorkerActive(1)
			AddWorkerActive(-1)
			So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, before)
		})

		Convey("Then the remaining recorders do not panic", func() {
			So(func() {
				RecordDuplicateRun()
				RecordProgressWrite()
				RecordDecisionLatency(0.2)
				RecordPersistenceError("save_match")
				RecordPersistenceRetry("save_match")
				RecordCleanupFailedChunk()
				RecordNotifyError()
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordHTTPRequest("/tournaments", "POST", "202")
				RecordHTTPRequestDuration("/tournaments", "POST", "202", 1.5)
				RecordErrorByComponent("engine", "publish")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry exposes them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

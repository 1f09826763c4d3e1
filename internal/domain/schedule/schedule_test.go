package schedule_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/dilemma/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%02d", i)
	}
	return out
}

func TestRoundRobin(t *testing.T) {
	Convey("Given rosters of every size from 2 to 12", t, func() {
		for n := 2; n <= 12; n++ {
			tasks, err := schedule.RoundRobin(ids(n), schedule.DefaultRepetitions)
			So(err, ShouldBeNil)
			So(len(tasks), ShouldEqual, n*(n-1)/2*100)
			So(schedule.Count(n, schedule.DefaultRepetitions), ShouldEqual, len(tasks))
		}
	})

	Convey("Given four players and three repetitions", t, func() {
		tasks, err := schedule.RoundRobin(ids(4), 3)
		So(err, ShouldBeNil)

		Convey("Then every unordered pair appears exactly three times and nobody meets themselves", func() {
			pairs := map[[2]string]int{}
			for i, task := range tasks {
				So(task.Seq, ShouldEqual, i)
				So(task.HomeID, ShouldNotEqual, task.AwayID)
				a, b := task.HomeID, task.AwayID
				if b < a {
					a, b = b, a
				}
				pairs[[2]string{a, b}]++
			}
			So(len(pairs), ShouldEqual, 6)
			for _, c := range pairs {
				So(c, ShouldEqual, 3)
			}
		})

		Convey("Then the earlier roster entry plays at home", func() {
			So(tasks[0].HomeID, ShouldEqual, "p00")
			So(tasks[0].AwayID, ShouldEqual, "p01")
			So(tasks[len(tasks)-1].HomeID, ShouldEqual, "p02")
			So(tasks[len(tasks)-1].AwayID, ShouldEqual, "p03")
		})
	})

	Convey("Given invalid input", t, func() {
		_, err := schedule.RoundRobin(ids(1), 100)
		So(errors.Is(err, schedule.ErrNotEnoughPlayers), ShouldBeTrue)

		_, err = schedule.RoundRobin(ids(3), 0)
		So(errors.Is(err, schedule.ErrInvalidRepetitions), ShouldBeTrue)

		_, err = schedule.RoundRobin([]string{"a", "b", "a"}, 1)
		So(errors.Is(err, schedule.ErrDuplicatePlayer), ShouldBeTrue)

		So(schedule.Count(1, 100), ShouldEqual, 0)
	})
}

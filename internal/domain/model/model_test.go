package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/dilemma/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChoice(t *testing.T) {
	Convey("Given choice values", t, func() {
		Convey("Then only cooperate and defect are valid", func() {
			So(model.Cooperate.Valid(), ShouldBeTrue)
			So(model.Defect.Valid(), ShouldBeTrue)
			So(model.Choice("").Valid(), ShouldBeFalse)
			So(model.Choice("Cooperate").Valid(), ShouldBeFalse)
			So(model.Choice("maybe").Valid(), ShouldBeFalse)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("Given session statuses", t, func() {
		Convey("When rendering progress", func() {
			s := model.ProgressStatus(42)

			Convey("Then it round-trips as a percentage", func() {
				So(string(s), ShouldEqual, "42")
				p, ok := s.Progress()
				So(ok, ShouldBeTrue)
				So(p, ShouldEqual, 42)
				So(s.Finished(), ShouldBeFalse)
			})
		})

		Convey("When the status is a lifecycle label", func() {
			_, ok := model.StatusStarted.Progress()
			So(ok, ShouldBeFalse)
			So(model.StatusFinished.Finished(), ShouldBeTrue)
		})

		Convey("When the number is out of range", func() {
			_, ok := model.Status("101").Progress()
			So(ok, ShouldBeFalse)
			_, ok = model.Status("-1").Progress()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestResultsJSON(t *testing.T) {
	Convey("Given results with a ranked leaderboard", t, func() {
		res := model.Results{
			Leaderboard: model.Leaderboard{
				{PlayerID: "2", Name: "zed", Score: 30, ShortTactic: "defects"},
				{PlayerID: "1", Name: "amy", Score: 12, ShortTactic: "cooperates"},
			},
			Matrix: model.Matrix{
				"zed": {"amy": 30},
				"amy": {"zed": 12},
			},
		}

		Convey("When encoding", func() {
			raw, err := json.Marshal(res)
			So(err, ShouldBeNil)

			Convey("Then the leaderboard keeps ranking order, not key order", func() {
				So(string(raw), ShouldStartWith,
					`{"leaderboard":{"zed":{"score":30,"short_tactic":"defects"},"amy":{"score":12,"short_tactic":"cooperates"}}`)
			})

			Convey("And decoding restores the same order and scores", func() {
				var back model.Results
				So(json.Unmarshal(raw, &back), ShouldBeNil)
				So(len(back.Leaderboard), ShouldEqual, 2)
				So(back.Leaderboard[0].Name, ShouldEqual, "zed")
				So(back.Leaderboard[1].Score, ShouldEqual, 12)
				So(back.Matrix["amy"]["zed"], ShouldEqual, 12)
			})
		})

		Convey("When looking up entries and row sums", func() {
			e, ok := res.Leaderboard.Entry("amy")
			So(ok, ShouldBeTrue)
			So(e.Score, ShouldEqual, 12)
			_, ok = res.Leaderboard.Entry("nobody")
			So(ok, ShouldBeFalse)
			So(res.Matrix.RowSum("zed"), ShouldEqual, 30)
		})
	})

	Convey("Given a malformed leaderboard document", t, func() {
		var l model.Leaderboard
		err := json.Unmarshal([]byte(`[1,2]`), &l)
		So(err, ShouldNotBeNil)
	})
}

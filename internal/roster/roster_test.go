package roster_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/roster"
	. "github.com/smartystreets/goconvey/convey"
)

const doc = `
players:
  - id: p1
    name: amy
    function_name: tit_for_tat
    short_tactic: mirror
  - id: p2
    name: " gen "
    function_name: generated
    code: |
      func Decide(history [][2]string) string { return "defect" }
`

func TestParse(t *testing.T) {
	Convey("Given a roster with a builtin and a generated player", t, func() {
		players, err := roster.Parse(strings.NewReader(doc))
		So(err, ShouldBeNil)

		Convey("Then both are decoded in order", func() {
			want := []model.Player{
				{ID: "p1", Name: "amy", FunctionName: "tit_for_tat", ShortTactic: "mirror"},
				{ID: "p2", Name: "gen", FunctionName: "generated", Code: "func Decide(history [][2]string) string { return \"defect\" }\n"},
			}
			So(cmp.Diff(want, players), ShouldBeEmpty)
			So(roster.IDs(players), ShouldResemble, []string{"p1", "p2"})
		})
	})

	Convey("Given broken rosters", t, func() {
		cases := []struct {
			name string
			src  string
		}{
			{"empty", ""},
			{"unknown key", "players:\n  - id: a\n    name: a\n    function_name: x\n    colour: red\n"},
			{"no id", "players:\n  - name: a\n    function_name: x\n"},
			{"no name", "players:\n  - id: a\n    function_name: x\n"},
			{"no function", "players:\n  - id: a\n    name: a\n"},
			{"duplicate", "players:\n  - {id: a, name: a, function_name: x}\n  - {id: a, name: b, function_name: y}\n"},
			{"shared name", "players:\n  - {id: a, name: bob, function_name: x}\n  - {id: b, name: \" bob \", function_name: y}\n"},
		}
		for _, tc := range cases {
			Convey("Then the "+tc.name+" roster is rejected", func() {
				_, err := roster.Parse(strings.NewReader(tc.src))
				So(errors.Is(err, roster.ErrInvalidRoster), ShouldBeTrue)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a roster file", t, func() {
		path := filepath.Join(t.TempDir(), "roster.yaml")
		So(os.WriteFile(path, []byte(doc), 0o600), ShouldBeNil)

		players, err := roster.Load(path)
		So(err, ShouldBeNil)
		So(len(players), ShouldEqual, 2)

		Convey("Then a missing file is an error", func() {
			_, err := roster.Load(filepath.Join(t.TempDir(), "missing.yaml"))
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}

// Package roster reads player lists from YAML.
//
//	players:
//	  - id: p1
//	    name: amy
//	    function_name: tit_for_tat
//	    short_tactic: mirror the opponent
//	  - id: p2
//	    name: gen
//	    function_name: generated
//	    code: |
//	      func Decide(history [][2]string) string { return "defect" }
package roster

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/dilemma/internal/domain/model"
)

// ErrInvalidRoster reports a roster that cannot be used.
var ErrInvalidRoster = errors.New("invalid roster")

type document struct {
	Players []model.Player `yaml:"players"`
}

// Load reads the roster at path.
func Load(path string) ([]model.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster.Load: %w", err)
	}
	defer func() { _ = f.Close() }()

	players, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("roster.Load %s: %w", path, err)
	}
	return players, nil
}

// Parse decodes a roster document. Unknown keys are rejected; every player
// needs an id, a name and a function name. Ids and names must be unique.
func Parse(r io.Reader) ([]model.Player, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRoster)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}

	seen := make(map[string]struct{}, len(doc.Players))
	names := make(map[string]string, len(doc.Players))
	for i := range doc.Players {
		p := &doc.Players[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.FunctionName = strings.TrimSpace(p.FunctionName)

		switch {
		case p.ID == "":
			return nil, fmt.Errorf("%w: player %d has no id", ErrInvalidRoster, i)
		case p.Name == "":
			return nil, fmt.Errorf("%w: player %s has no name", ErrInvalidRoster, p.ID)
		case p.FunctionName == "":
			return nil, fmt.Errorf("%w: player %s has no function_name", ErrInvalidRoster, p.ID)
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidRoster, p.ID)
		}
		seen[p.ID] = struct{}{}
		if prev, ok := names[p.Name]; ok {
			return nil, fmt.Errorf("%w: players %s and %s share the name %s", ErrInvalidRoster, prev, p.ID, p.Name)
		}
		names[p.Name] = p.ID
	}
	return doc.Players, nil
}

// IDs returns the player ids in roster order.
func IDs(players []model.Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID    string
	Name        string
	Score       int
	ShortTactic string
}

// Leaderboard is ordered best first. It encodes as a JSON object keyed by
// player name whose key order follows the ranking.
type Leaderboard []LeaderboardEntry

// Matrix maps player name -> opponent name -> accumulated score.
type Matrix map[string]map[string]int

// Results is the payload written once a tournament finishes.
type Results struct {
	Leaderboard Leaderboard `json:"leaderboard"`
	Matrix      Matrix      `json:"matrix"`
}

type leaderboardValue struct {
	Score       int    `json:"score"`
	ShortTactic string `json:"short_tactic"`
}

// MarshalJSON writes the ranking as an ordered object.
func (l Leaderboard) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(leaderboardValue{Score: e.Score, ShortTactic: e.ShortTactic})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an ordered object back, keeping document order.
// Player IDs are not part of the wire format and stay empty.
func (l *Leaderboard) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("leaderboard: expected object")
	}
	out := Leaderboard{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("leaderboard: unexpected key %v", keyTok)
		}
		var v leaderboardValue
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("leaderboard: entry %q: %w", name, err)
		}
		out = append(out, LeaderboardEntry{Name: name, Score: v.Score, ShortTactic: v.ShortTactic})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// Entry returns the entry for the named player.
func (l Leaderboard) Entry(name string) (LeaderboardEntry, bool) {
	for _, e := range l {
		if e.Name == name {
			return e, true
		}
	}
	return LeaderboardEntry{}, false
}

// RowSum returns the total of a player's row.
func (m Matrix) RowSum(name string) int {
	total := 0
	for _, v := range m[name] {
		total += v
	}
	return total
}

// Clone returns a deep copy of r.
func (r Results) Clone() Results {
	out := Results{Leaderboard: append(Leaderboard(nil), r.Leaderboard...)}
	if r.Matrix != nil {
		out.Matrix = make(Matrix, len(r.Matrix))
		for k, row := range r.Matrix {
			cp := make(map[string]int, len(row))
			for o, v := range row {
				cp[o] = v
			}
			out.Matrix[k] = cp
		}
	}
	return out
}

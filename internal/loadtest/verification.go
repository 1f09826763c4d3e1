package loadtest

import (
	"fmt"

	"github.com/okian/dilemma/internal/domain/model"
)

// verifyResults checks that a published result covers exactly the given
// players, is ranked by score and agrees with its own matrix.
func verifyResults(res model.Results, names []string) error {
	if len(res.Leaderboard) != len(names) {
		return fmt.Errorf("%w: leaderboard has %d entries for %d players", ErrInconsistent, len(res.Leaderboard), len(names))
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	for i, e := range res.Leaderboard {
		if !want[e.Name] {
			return fmt.Errorf("%w: unexpected player %q", ErrInconsistent, e.Name)
		}
		if i > 0 && e.Score > res.Leaderboard[i-1].Score {
			return fmt.Errorf("%w: entry %d outranks entry %d", ErrInconsistent, i, i-1)
		}

		row, ok := res.Matrix[e.Name]
		if !ok {
			return fmt.Errorf("%w: no matrix row for %q", ErrInconsistent, e.Name)
		}
		if row[e.Name] != 0 {
			return fmt.Errorf("%w: %q scored against itself", ErrInconsistent, e.Name)
		}
		if sum := res.Matrix.RowSum(e.Name); sum != e.Score {
			return fmt.Errorf("%w: %q totals %d but its matrix row sums to %d", ErrInconsistent, e.Name, e.Score, sum)
		}
	}
	return nil
}

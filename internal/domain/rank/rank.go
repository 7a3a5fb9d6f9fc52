// Package rank implements the two rank computations used by the service.
//
// Submission rank is competition-style: ties share a position and the next
// distinct score skips ahead. Listing rank is positional: every row in a
// sorted window gets its own rank, ties included. The two intentionally
// diverge; callers must pick the one the product surface asks for.
package rank

import (
	"sort"

	"github.com/beatfall/scoreboard/internal/domain/model"
)

// Competition converts "how many existing scores strictly exceed mine"
// into a 1-based rank. Equal-scoring peers do not push this rank down.
func Competition(strictlyGreater int) int {
	return strictlyGreater + 1
}

// Display assigns the positional rank for a row inside a paginated window.
func Display(offset, index int) int {
	return offset + index + 1
}

// IsPersonalBest reports whether a new score counts as the account's
// personal best given the best prior record for the same song and
// difficulty. A tie with the prior best still counts as a personal best,
// and the absence of any prior record always does.
func IsPersonalBest(prior model.ScoreRecord, hasPrior bool, newScore int64) bool {
	if !hasPrior {
		return true
	}
	return prior.Score <= newScore
}

// Less is the canonical window ordering: score descending, then playedAt
// ascending, then record id ascending. Every store implementation must
// produce windows in exactly this order so listings stay deterministic.
func Less(a, b model.ScoreRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.PlayedAt.Equal(b.PlayedAt) {
		return a.PlayedAt.Before(b.PlayedAt)
	}
	return a.ID < b.ID
}

// SortWindow sorts records in place into the canonical window ordering.
func SortWindow(records []model.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}

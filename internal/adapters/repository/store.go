// Package repository defines the score ledger and aggregate store
// interfaces and their errors.
package repository

import (
	"context"

	"github.com/beatfall/scoreboard/internal/domain/model"
)

// Query selects the ranking universe: all records for a song, optionally
// narrowed to one difficulty. A zero Difficulty matches every difficulty.
type Query struct {
	SongID     string
	Difficulty model.Difficulty
}

// Matches reports whether a record belongs to the query's universe.
func (q Query) Matches(r model.ScoreRecord) bool {
	if r.SongID != q.SongID {
		return false
	}
	return q.Difficulty == model.DifficultyAny || r.Difficulty == q.Difficulty
}

// Store is the append-only score ledger. Records are immutable once
// appended; reads are point-in-time snapshots and never observe a
// partially written record.
type Store interface {
	// Append persists a new record, assigns its id and returns it.
	Append(ctx context.Context, rec *model.ScoreRecord) (string, error)

	// CountGreaterThan returns how many records in the universe have a
	// strictly greater score.
	CountGreaterThan(ctx context.Context, q Query, score int64) (int, error)

	// BestPrior returns the account's highest-scoring record for the
	// given song and difficulty, or ErrNotFound when none exists.
	BestPrior(ctx context.Context, accountID, songID string, difficulty model.Difficulty) (model.ScoreRecord, error)

	// Window returns records in canonical order (score desc, playedAt
	// asc, id asc) for the requested page. Offsets past the end yield an
	// empty slice, not an error.
	Window(ctx context.Context, q Query, offset, limit int) ([]model.ScoreRecord, error)

	// CountMatching returns the size of the ranking universe.
	CountMatching(ctx context.Context, q Query) (int, error)

	// History returns the account's records, most recent first.
	History(ctx context.Context, accountID string, limit int) ([]model.ScoreRecord, error)

	// CountByAccount returns how many records the account has appended.
	CountByAccount(ctx context.Context, accountID string) (int, error)
}

// AccountStore mutates and reads per-account aggregate state.
type AccountStore interface {
	// ApplySessionDelta atomically folds one accepted session into the
	// account's lifetime stats: totalScore += scoreDelta, gamesPlayed +=
	// 1, highestCombo = max(highestCombo, comboObserved). Implementations
	// must not read-modify-write; concurrent submissions for the same
	// account may not lose updates. Returns ErrAccountNotFound when the
	// account itself does not exist.
	ApplySessionDelta(ctx context.Context, accountID string, scoreDelta int64, comboObserved int) (model.AggregateStats, error)

	// Profile returns the public projection for one account, or
	// ErrAccountNotFound.
	Profile(ctx context.Context, accountID string) (model.Profile, error)

	// Profiles returns public projections for the given accounts.
	// Unknown ids are simply absent from the result.
	Profiles(ctx context.Context, accountIDs []string) (map[string]model.Profile, error)
}

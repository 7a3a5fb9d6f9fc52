// Package model contains domain models passed between layers.
package model

import "time"

// Difficulty is the chart difficulty a session was played on.
type Difficulty string

// Known difficulties. The empty value acts as "no filter" in queries.
const (
	DifficultyAny    Difficulty = ""
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d names a playable difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty maps a raw string to a Difficulty. The empty string is
// accepted and means "all difficulties".
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(s)
	if d == DifficultyAny || d.Valid() {
		return d, true
	}
	return DifficultyAny, false
}

// Grade is the client-computed letter grade for a session. It is stored as
// asserted and never recomputed server-side.
type Grade string

// Valid reports whether g is one of the letter grades the game awards.
func (g Grade) Valid() bool {
	switch g {
	case "S", "A", "B", "C", "D":
		return true
	}
	return false
}

// Session is a completed play session as submitted by the game client.
// All performance values are asserted by the client.
type Session struct {
	// SubmissionID is an optional client-generated idempotency token.
	// Replays of the same token are rejected before any write.
	SubmissionID string

	SongID     string
	SongTitle  string
	SongArtist string
	Difficulty Difficulty

	Score       int64
	MaxCombo    int
	Multiplier  int
	Accuracy    float64
	NotesHit    int
	NotesMissed int
	TotalNotes  int

	Grade                 Grade
	CompletedSuccessfully bool
}

// Validate checks field ranges and reports the first invalid field.
// A nil return means the session is acceptable. Field order matches the
// submission payload so clients see stable error messages.
func (s Session) Validate() error {
	switch {
	case s.SongID == "":
		return newValidationError("songId", "must not be empty")
	case s.SongTitle == "":
		return newValidationError("songTitle", "must not be empty")
	case s.SongArtist == "":
		return newValidationError("songArtist", "must not be empty")
	case !s.Difficulty.Valid():
		return newValidationError("songDifficulty", "must be Easy, Medium or Hard")
	case s.Score < 0:
		return newValidationError("score", "must not be negative")
	case s.MaxCombo < 0:
		return newValidationError("maxCombo", "must not be negative")
	case s.Multiplier < 1:
		return newValidationError("multiplier", "must be at least 1")
	case s.Accuracy < 0 || s.Accuracy > 100:
		return newValidationError("accuracy", "must be between 0 and 100")
	case s.NotesHit < 0:
		return newValidationError("notesHit", "must not be negative")
	case s.NotesMissed < 0:
		return newValidationError("notesMissed", "must not be negative")
	case s.TotalNotes < 1:
		return newValidationError("totalNotes", "must be at least 1")
	case !s.Grade.Valid():
		return newValidationError("rank", "must be S, A, B, C or D")
	}
	return nil
}

// ScoreRecord is one accepted play session in the ledger. Records are
// immutable once appended; they are never updated or deleted.
type ScoreRecord struct {
	ID        string
	AccountID string

	SongID     string
	SongTitle  string
	SongArtist string
	Difficulty Difficulty

	Score       int64
	MaxCombo    int
	Multiplier  int
	Accuracy    float64
	NotesHit    int
	NotesMissed int
	TotalNotes  int

	Grade                 Grade
	CompletedSuccessfully bool

	// PlayedAt is assigned at acceptance time and is the secondary sort
	// key for leaderboard windows.
	PlayedAt time.Time
}

// RecordFromSession builds the ledger record for an accepted session.
func RecordFromSession(accountID string, s Session, playedAt time.Time) ScoreRecord {
	return ScoreRecord{
		AccountID:             accountID,
		SongID:                s.SongID,
		SongTitle:             s.SongTitle,
		SongArtist:            s.SongArtist,
		Difficulty:            s.Difficulty,
		Score:                 s.Score,
		MaxCombo:              s.MaxCombo,
		Multiplier:            s.Multiplier,
		Accuracy:              s.Accuracy,
		NotesHit:              s.NotesHit,
		NotesMissed:           s.NotesMissed,
		TotalNotes:            s.TotalNotes,
		Grade:                 s.Grade,
		CompletedSuccessfully: s.CompletedSuccessfully,
		PlayedAt:              playedAt,
	}
}

// AggregateStats is the per-account lifetime rollup. TotalScore and
// GamesPlayed only ever grow; HighestCombo only ever rises.
type AggregateStats struct {
	TotalScore   int64
	GamesPlayed  int
	HighestCombo int
}

// Profile is the public account projection attached to leaderboard
// entries. Private account fields never leave the aggregate store.
type Profile struct {
	Username    string
	DisplayName string
	Avatar      string
}

// AggregateDelta is a pending aggregate update, queued for background
// reconciliation when the inline update fails after a ledger append.
type AggregateDelta struct {
	AccountID     string
	ScoreDelta    int64
	ComboObserved int
	RecordID      string
	Attempts      int
}

// Package types contains the read shapes shared between the service and
// the HTTP API. JSON tags use camelCase to stay wire-compatible with the
// game client.
package types

import "time"

// SubmitResult is the response to an accepted submission.
type SubmitResult struct {
	RecordID        string `json:"recordId"`
	PersonalBest    bool   `json:"personalBest"`
	LeaderboardRank int    `json:"leaderboardRank"`
}

// AccountRef is the minimal public account projection shown next to a
// leaderboard entry.
type AccountRef struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// LeaderboardEntry is one row of a leaderboard window. Rank here is the
// positional rank within the sorted window, not the competition rank
// reported at submission time.
type LeaderboardEntry struct {
	Rank     int        `json:"rank"`
	Score    int64      `json:"score"`
	MaxCombo int        `json:"maxCombo"`
	Accuracy float64    `json:"accuracy"`
	Account  AccountRef `json:"user"`
	PlayedAt time.Time  `json:"playedAt"`
}

// LeaderboardPage is a paginated leaderboard view.
type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"leaderboard"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
}

// HistoryEntry is one row of an account's play history.
type HistoryEntry struct {
	ID                    string    `json:"id"`
	SongID                string    `json:"songId"`
	SongTitle             string    `json:"songTitle"`
	SongArtist            string    `json:"songArtist"`
	Difficulty            string    `json:"songDifficulty"`
	Score                 int64     `json:"score"`
	MaxCombo              int       `json:"maxCombo"`
	Accuracy              float64   `json:"accuracy"`
	Grade                 string    `json:"rank"`
	CompletedSuccessfully bool      `json:"gameEndedSuccessfully"`
	PlayedAt              time.Time `json:"playedAt"`
}

// HistoryPage is an account's most-recent-first play history.
type HistoryPage struct {
	Scores []HistoryEntry `json:"scores"`
	Total  int            `json:"total"`
}

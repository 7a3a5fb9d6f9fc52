package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/beatfall/scoreboard/internal/domain/model"
)

// scoreRow maps a ledger record onto the score_records table.
type scoreRow struct {
	bun.BaseModel `bun:"table:score_records,alias:sr"`

	ID        string `bun:"id,pk,type:uuid"`
	AccountID string `bun:"account_id,notnull"`

	SongID     string `bun:"song_id,notnull"`
	SongTitle  string `bun:"song_title,notnull"`
	SongArtist string `bun:"song_artist,notnull"`
	Difficulty string `bun:"song_difficulty,notnull"`

	Score       int64   `bun:"score,notnull"`
	MaxCombo    int     `bun:"max_combo,notnull,default:0"`
	Multiplier  int     `bun:"multiplier,notnull,default:1"`
	Accuracy    float64 `bun:"accuracy,notnull"`
	NotesHit    int     `bun:"notes_hit,notnull,default:0"`
	NotesMissed int     `bun:"notes_missed,notnull,default:0"`
	TotalNotes  int     `bun:"total_notes,notnull"`

	Grade                 string `bun:"grade,notnull"`
	CompletedSuccessfully bool   `bun:"completed_successfully,notnull,default:false"`

	PlayedAt time.Time `bun:"played_at,notnull"`
}

// accountRow maps an account and its aggregate stats onto the accounts
// table. Private columns (email, password hash, ...) belong to the
// identity subsystem and are intentionally not modeled here.
type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID          string `bun:"id,pk"`
	Username    string `bun:"username,notnull"`
	DisplayName string `bun:"display_name,notnull"`
	Avatar      string `bun:"avatar,nullzero"`

	TotalScore   int64 `bun:"total_score,notnull,default:0"`
	GamesPlayed  int   `bun:"games_played,notnull,default:0"`
	HighestCombo int   `bun:"highest_combo,notnull,default:0"`
}

func rowFromRecord(rec *model.ScoreRecord) *scoreRow {
	return &scoreRow{
		ID:                    rec.ID,
		AccountID:             rec.AccountID,
		SongID:                rec.SongID,
		SongTitle:             rec.SongTitle,
		SongArtist:            rec.SongArtist,
		Difficulty:            string(rec.Difficulty),
		Score:                 rec.Score,
		MaxCombo:              rec.MaxCombo,
		Multiplier:            rec.Multiplier,
		Accuracy:              rec.Accuracy,
		NotesHit:              rec.NotesHit,
		NotesMissed:           rec.NotesMissed,
		TotalNotes:            rec.TotalNotes,
		Grade:                 string(rec.Grade),
		CompletedSuccessfully: rec.CompletedSuccessfully,
		PlayedAt:              rec.PlayedAt,
	}
}

func recordFromRow(row *scoreRow) model.ScoreRecord {
	return model.ScoreRecord{
		ID:                    row.ID,
		AccountID:             row.AccountID,
		SongID:                row.SongID,
		SongTitle:             row.SongTitle,
		SongArtist:            row.SongArtist,
		Difficulty:            model.Difficulty(row.Difficulty),
		Score:                 row.Score,
		MaxCombo:              row.MaxCombo,
		Multiplier:            row.Multiplier,
		Accuracy:              row.Accuracy,
		NotesHit:              row.NotesHit,
		NotesMissed:           row.NotesMissed,
		TotalNotes:            row.TotalNotes,
		Grade:                 model.Grade(row.Grade),
		CompletedSuccessfully: row.CompletedSuccessfully,
		PlayedAt:              row.PlayedAt,
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/beatfall/scoreboard/internal/domain/model"
)

// BunStore implements Store and AccountStore on Postgres via bun.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a Postgres connection pool for the given DSN.
func NewBunStore(ctx context.Context, dsn string) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w: %w", ErrUnavailable, err)
	}
	return &BunStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// Init creates the ledger and account tables when missing, plus the
// indexes the leaderboard queries lean on.
func (s *BunStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*accountRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*scoreRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create score_records table: %w", err)
	}
	indexes := []struct {
		name    string
		columns string
	}{
		{"score_records_song_score_idx", "(song_id, score DESC)"},
		{"score_records_song_difficulty_score_idx", "(song_id, song_difficulty, score DESC)"},
		{"score_records_account_played_idx", "(account_id, played_at DESC)"},
	}
	for _, idx := range indexes {
		q := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON score_records %s", idx.name, idx.columns)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}

// Append implements Store.
func (s *BunStore) Append(ctx context.Context, rec *model.ScoreRecord) (string, error) {
	if err := checkRecord(rec); err != nil {
		return "", err
	}
	rec.ID = uuid.NewString()
	row := rowFromRecord(rec)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		rec.ID = ""
		return "", fmt.Errorf("append score record: %w: %w", ErrUnavailable, err)
	}
	return rec.ID, nil
}

// CountGreaterThan implements Store.
func (s *BunStore) CountGreaterThan(ctx context.Context, q Query, score int64) (int, error) {
	sel := s.db.NewSelect().Model((*scoreRow)(nil)).
		Where("song_id = ?", q.SongID).
		Where("score > ?", score)
	if q.Difficulty != model.DifficultyAny {
		sel = sel.Where("song_difficulty = ?", string(q.Difficulty))
	}
	n, err := sel.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count greater than: %w: %w", ErrUnavailable, err)
	}
	return n, nil
}

// BestPrior implements Store.
func (s *BunStore) BestPrior(ctx context.Context, accountID, songID string, difficulty model.Difficulty) (model.ScoreRecord, error) {
	row := new(scoreRow)
	err := s.db.NewSelect().Model(row).
		Where("account_id = ?", accountID).
		Where("song_id = ?", songID).
		Where("song_difficulty = ?", string(difficulty)).
		OrderExpr("score DESC, played_at ASC, id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ScoreRecord{}, ErrNotFound
		}
		return model.ScoreRecord{}, fmt.Errorf("best prior: %w: %w", ErrUnavailable, err)
	}
	return recordFromRow(row), nil
}

// Window implements Store.
func (s *BunStore) Window(ctx context.Context, q Query, offset, limit int) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	sel := s.db.NewSelect().Model(&rows).
		Where("song_id = ?", q.SongID)
	if q.Difficulty != model.DifficultyAny {
		sel = sel.Where("song_difficulty = ?", string(q.Difficulty))
	}
	err := sel.OrderExpr("score DESC, played_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard window: %w: %w", ErrUnavailable, err)
	}
	out := make([]model.ScoreRecord, len(rows))
	for i := range rows {
		out[i] = recordFromRow(&rows[i])
	}
	return out, nil
}

// CountMatching implements Store.
func (s *BunStore) CountMatching(ctx context.Context, q Query) (int, error) {
	sel := s.db.NewSelect().Model((*scoreRow)(nil)).
		Where("song_id = ?", q.SongID)
	if q.Difficulty != model.DifficultyAny {
		sel = sel.Where("song_difficulty = ?", string(q.Difficulty))
	}
	n, err := sel.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count matching: %w: %w", ErrUnavailable, err)
	}
	return n, nil
}

// History implements Store.
func (s *BunStore) History(ctx context.Context, accountID string, limit int) ([]model.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.NewSelect().Model(&rows).
		Where("account_id = ?", accountID).
		OrderExpr("played_at DESC, id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: %w: %w", ErrUnavailable, err)
	}
	out := make([]model.ScoreRecord, len(rows))
	for i := range rows {
		out[i] = recordFromRow(&rows[i])
	}
	return out, nil
}

// CountByAccount implements Store.
func (s *BunStore) CountByAccount(ctx context.Context, accountID string) (int, error) {
	n, err := s.db.NewSelect().Model((*scoreRow)(nil)).
		Where("account_id = ?", accountID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count by account: %w: %w", ErrUnavailable, err)
	}
	return n, nil
}

// ApplySessionDelta implements AccountStore. The fold is a single UPDATE
// with in-database arithmetic, so concurrent submissions for the same
// account serialize on the row and never lose updates.
func (s *BunStore) ApplySessionDelta(ctx context.Context, accountID string, scoreDelta int64, comboObserved int) (model.AggregateStats, error) {
	row := new(accountRow)
	res, err := s.db.NewUpdate().Model(row).
		Set("total_score = total_score + ?", scoreDelta).
		Set("games_played = games_played + 1").
		Set("highest_combo = GREATEST(highest_combo, ?)", comboObserved).
		Where("id = ?", accountID).
		Returning("total_score, games_played, highest_combo").
		Exec(ctx)
	if err != nil {
		return model.AggregateStats{}, fmt.Errorf("apply session delta: %w: %w", ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return model.AggregateStats{}, fmt.Errorf("apply session delta for %q: %w", accountID, ErrAccountNotFound)
	}
	return model.AggregateStats{
		TotalScore:   row.TotalScore,
		GamesPlayed:  row.GamesPlayed,
		HighestCombo: row.HighestCombo,
	}, nil
}

// Profile implements AccountStore.
func (s *BunStore) Profile(ctx context.Context, accountID string) (model.Profile, error) {
	row := new(accountRow)
	err := s.db.NewSelect().Model(row).
		Column("username", "display_name", "avatar").
		Where("id = ?", accountID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, fmt.Errorf("profile for %q: %w", accountID, ErrAccountNotFound)
		}
		return model.Profile{}, fmt.Errorf("profile: %w: %w", ErrUnavailable, err)
	}
	return model.Profile{Username: row.Username, DisplayName: row.DisplayName, Avatar: row.Avatar}, nil
}

// Profiles implements AccountStore.
func (s *BunStore) Profiles(ctx context.Context, accountIDs []string) (map[string]model.Profile, error) {
	if len(accountIDs) == 0 {
		return map[string]model.Profile{}, nil
	}
	var rows []accountRow
	err := s.db.NewSelect().Model(&rows).
		Column("id", "username", "display_name", "avatar").
		Where("id IN (?)", bun.In(accountIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w: %w", ErrUnavailable, err)
	}
	out := make(map[string]model.Profile, len(rows))
	for i := range rows {
		out[rows[i].ID] = model.Profile{
			Username:    rows[i].Username,
			DisplayName: rows[i].DisplayName,
			Avatar:      rows[i].Avatar,
		}
	}
	return out, nil
}

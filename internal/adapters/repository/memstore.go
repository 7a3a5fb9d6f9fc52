package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/internal/domain/rank"
	"github.com/beatfall/scoreboard/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-memory implementation of Store and
// AccountStore. It backs tests and the dev-mode backend; ordering and
// error semantics match the Postgres implementation exactly.
type MemoryStore struct {
	mu       sync.RWMutex
	records  []model.ScoreRecord
	accounts map[string]*memAccount

	autoProvision bool
}

type memAccount struct {
	profile model.Profile
	stats   model.AggregateStats
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithAutoProvisionAccounts makes ApplySessionDelta create an account row
// on first contact instead of failing with ErrAccountNotFound. Dev mode
// uses this because there is no external identity store to pre-create
// accounts; production keeps it off.
func WithAutoProvisionAccounts() MemoryOption {
	return func(s *MemoryStore) {
		s.autoProvision = true
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		accounts: make(map[string]*memAccount),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutAccount registers an account with its public profile. Tests and dev
// tooling use this in place of the external identity subsystem.
func (s *MemoryStore) PutAccount(ctx context.Context, accountID string, profile model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		a.profile = profile
		return
	}
	s.accounts[accountID] = &memAccount{profile: profile}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, rec *model.ScoreRecord) (string, error) {
	if err := checkRecord(rec); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = uuid.NewString()
	s.records = append(s.records, *rec)
	metrics.UpdateLedgerSize(len(s.records))
	return rec.ID, nil
}

// CountGreaterThan implements Store.
func (s *MemoryStore) CountGreaterThan(ctx context.Context, q Query, score int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.records {
		if q.Matches(s.records[i]) && s.records[i].Score > score {
			n++
		}
	}
	return n, nil
}

// BestPrior implements Store.
func (s *MemoryStore) BestPrior(ctx context.Context, accountID, songID string, difficulty model.Difficulty) (model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best model.ScoreRecord
	found := false
	for i := range s.records {
		r := s.records[i]
		if r.AccountID != accountID || r.SongID != songID || r.Difficulty != difficulty {
			continue
		}
		if !found || rank.Less(r, best) {
			best = r
			found = true
		}
	}
	if !found {
		return model.ScoreRecord{}, ErrNotFound
	}
	return best, nil
}

// Window implements Store.
func (s *MemoryStore) Window(ctx context.Context, q Query, offset, limit int) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	matched := make([]model.ScoreRecord, 0)
	for i := range s.records {
		if q.Matches(s.records[i]) {
			matched = append(matched, s.records[i])
		}
	}
	s.mu.RUnlock()

	rank.SortWindow(matched)
	if offset >= len(matched) {
		return []model.ScoreRecord{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// CountMatching implements Store.
func (s *MemoryStore) CountMatching(ctx context.Context, q Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.records {
		if q.Matches(s.records[i]) {
			n++
		}
	}
	return n, nil
}

// History implements Store. Records come back most recent first, with the
// record id breaking timestamp ties for determinism.
func (s *MemoryStore) History(ctx context.Context, accountID string, limit int) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	matched := make([]model.ScoreRecord, 0)
	for i := range s.records {
		if s.records[i].AccountID == accountID {
			matched = append(matched, s.records[i])
		}
	}
	s.mu.RUnlock()

	sortHistory(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountByAccount implements Store.
func (s *MemoryStore) CountByAccount(ctx context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.records {
		if s.records[i].AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// ApplySessionDelta implements AccountStore. The whole fold happens under
// one lock, so concurrent submissions for the same account cannot lose
// updates.
func (s *MemoryStore) ApplySessionDelta(ctx context.Context, accountID string, scoreDelta int64, comboObserved int) (model.AggregateStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		if !s.autoProvision {
			return model.AggregateStats{}, fmt.Errorf("apply session delta for %q: %w", accountID, ErrAccountNotFound)
		}
		a = &memAccount{profile: model.Profile{Username: accountID, DisplayName: accountID}}
		s.accounts[accountID] = a
	}
	a.stats.TotalScore += scoreDelta
	a.stats.GamesPlayed++
	if comboObserved > a.stats.HighestCombo {
		a.stats.HighestCombo = comboObserved
	}
	return a.stats, nil
}

// Profile implements AccountStore.
func (s *MemoryStore) Profile(ctx context.Context, accountID string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return model.Profile{}, fmt.Errorf("profile for %q: %w", accountID, ErrAccountNotFound)
	}
	return a.profile, nil
}

// Profiles implements AccountStore.
func (s *MemoryStore) Profiles(ctx context.Context, accountIDs []string) (map[string]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Profile, len(accountIDs))
	for _, id := range accountIDs {
		if a, ok := s.accounts[id]; ok {
			out[id] = a.profile
		}
	}
	return out, nil
}

// Stats returns the aggregate stats for an account. Tests use this to
// assert monotonicity; it is not part of the AccountStore contract.
func (s *MemoryStore) Stats(ctx context.Context, accountID string) (model.AggregateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return model.AggregateStats{}, fmt.Errorf("stats for %q: %w", accountID, ErrAccountNotFound)
	}
	return a.stats, nil
}

// Len returns the number of ledger records.
func (s *MemoryStore) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func checkRecord(rec *model.ScoreRecord) error {
	switch {
	case rec == nil:
		return fmt.Errorf("nil record: %w", ErrInvalidRecord)
	case rec.AccountID == "":
		return fmt.Errorf("missing account id: %w", ErrInvalidRecord)
	case rec.SongID == "":
		return fmt.Errorf("missing song id: %w", ErrInvalidRecord)
	case rec.Score < 0:
		return fmt.Errorf("negative score: %w", ErrInvalidRecord)
	case rec.PlayedAt.IsZero():
		return fmt.Errorf("missing playedAt: %w", ErrInvalidRecord)
	}
	return nil
}

// sortHistory orders records most recent first, id ascending on equal
// timestamps.
func sortHistory(records []model.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return historyLess(records[i], records[j])
	})
}

func historyLess(a, b model.ScoreRecord) bool {
	if !a.PlayedAt.Equal(b.PlayedAt) {
		return a.PlayedAt.After(b.PlayedAt)
	}
	return a.ID < b.ID
}

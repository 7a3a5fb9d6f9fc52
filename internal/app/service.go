// Package service implements the submission coordinator and the
// leaderboard query service on top of the score ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beatfall/scoreboard/internal/adapters/mq/queue"
	workerpool "github.com/beatfall/scoreboard/internal/adapters/mq/worker"
	"github.com/beatfall/scoreboard/internal/adapters/repository"
	"github.com/beatfall/scoreboard/internal/domain/dedupe"
	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/internal/domain/rank"
	"github.com/beatfall/scoreboard/internal/domain/types"
	"github.com/beatfall/scoreboard/pkg/logger"
	"github.com/beatfall/scoreboard/pkg/metrics"
)

// Default limits, matching the public API contract.
const (
	defaultMaxLeaderboardLimit     = 100
	defaultLeaderboardLimitDefault = 50
	defaultHistoryLimit            = 20
	defaultDedupeSize              = 50_000
	defaultReconcileQueueSize      = 10_000
	defaultReconcileWorkers        = 2
)

// Service wires the stores, ranking rules, dedupe cache and the
// reconciliation pool into the operations the HTTP layer calls.
type Service struct {
	mu sync.RWMutex

	scores   repository.Store
	accounts repository.AccountStore
	deduper  dedupe.Deduper

	reconcileQueue *queue.InMemoryQueue
	reconcilePool  *workerpool.Pool

	maxLeaderboardLimit     int
	defaultLeaderboardLimit int
	historyLimit            int
	dedupeSize              int
	reconcileQueueSize      int
	reconcileWorkers        int

	started bool
	logger  logger.Logger

	now func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStores injects the ledger and aggregate store implementations.
// When unset, Start falls back to a self-provisioning in-memory store.
func WithStores(scores repository.Store, accounts repository.AccountStore) Option {
	return func(s *Service) {
		s.scores = scores
		s.accounts = accounts
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxLeaderboardLimit caps the leaderboard page size.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithDefaultLeaderboardLimit sets the page size used when the caller
// does not pass one.
func WithDefaultLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLeaderboardLimit = n
		}
	}
}

// WithHistoryLimit sets the default history page size.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithDedupeSize sets the size of the idempotency token cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithReconcileQueueSize bounds the reconciliation queue.
func WithReconcileQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reconcileQueueSize = n
		}
	}
}

// WithReconcileWorkers sets the number of reconciliation workers.
func WithReconcileWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reconcileWorkers = n
		}
	}
}

// withClock overrides acceptance timestamps in tests.
func withClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxLeaderboardLimit:     defaultMaxLeaderboardLimit,
		defaultLeaderboardLimit: defaultLeaderboardLimitDefault,
		historyLimit:            defaultHistoryLimit,
		dedupeSize:              defaultDedupeSize,
		reconcileQueueSize:      defaultReconcileQueueSize,
		reconcileWorkers:        defaultReconcileWorkers,
		now:                     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the dedupe cache and the reconciliation pool. When no
// stores were injected it provisions the in-memory backend.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.scores == nil || s.accounts == nil {
		mem := repository.NewMemoryStore(repository.WithAutoProvisionAccounts())
		s.scores = mem
		s.accounts = mem
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewTokenCache(dedupe.WithMaxSize(s.dedupeSize))
	s.reconcileQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.reconcileQueueSize))
	s.reconcilePool = workerpool.NewPool(s.reconcileWorkers, s.reconcileQueue, s.accounts,
		workerpool.WithLogger(s.logger.Named("reconcile")),
	)
	s.reconcilePool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("reconcileWorkers", s.reconcileWorkers),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop shuts down the reconciliation pool and queue.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.reconcileQueue != nil {
		_ = s.reconcileQueue.Close()
	}
	if s.reconcilePool != nil {
		s.reconcilePool.Stop()
	}
	if closer, ok := s.scores.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "scoreboard service stopped")
}

// Submit validates and durably records one completed play session, folds
// it into the account's lifetime stats and reports the session's
// competition rank and personal-best flag.
//
// Write order is deliberate: the personal-best check runs against
// pre-append state so the new record is not its own prior best, and the
// rank query runs after the append so the new record counts in its own
// ranking universe.
func (s *Service) Submit(ctx context.Context, accountID string, in model.Session) (types.SubmitResult, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.SubmitResult{}, ErrNotStarted
	}

	if err := in.Validate(); err != nil {
		metrics.RecordSubmissionRejected()
		return types.SubmitResult{}, err
	}

	tokenRecorded := false
	if in.SubmissionID != "" {
		if s.deduper.SeenAndRecord(ctx, in.SubmissionID) {
			metrics.RecordSubmissionDuplicate()
			return types.SubmitResult{}, fmt.Errorf("submission %q: %w", in.SubmissionID, ErrDuplicateSubmission)
		}
		tokenRecorded = true
	}

	// Personal best must be decided before the append; a tie with the
	// prior best still counts.
	prior, err := s.scores.BestPrior(ctx, accountID, in.SongID, in.Difficulty)
	hasPrior := true
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.unrecord(ctx, tokenRecorded, in.SubmissionID)
			return types.SubmitResult{}, err
		}
		hasPrior = false
	}
	personalBest := rank.IsPersonalBest(prior, hasPrior, in.Score)

	rec := model.RecordFromSession(accountID, in, s.now())
	recordID, err := s.scores.Append(ctx, &rec)
	if err != nil {
		s.unrecord(ctx, tokenRecorded, in.SubmissionID)
		return types.SubmitResult{}, err
	}

	if _, err := s.accounts.ApplySessionDelta(ctx, accountID, in.Score, in.MaxCombo); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// The ledger entry stays; an authenticated caller without a
			// backing account is an internal consistency fault.
			s.logger.Error(ctx, "aggregate update failed: account missing",
				logger.String("accountId", accountID),
				logger.String("recordId", recordID),
			)
			return types.SubmitResult{}, err
		}
		// Transient failure after a durable append: hand the delta to the
		// reconciliation pool instead of failing the whole submission.
		metrics.RecordConsistencyFault()
		s.logger.Error(ctx, "aggregate update failed after append; queued for reconciliation",
			logger.String("accountId", accountID),
			logger.String("recordId", recordID),
			logger.Error(err),
		)
		s.reconcileQueue.Enqueue(ctx, queue.Task{
			AccountID:     accountID,
			ScoreDelta:    in.Score,
			ComboObserved: in.MaxCombo,
			RecordID:      recordID,
		})
	}

	// Competition rank against the post-append universe. A slightly stale
	// count under concurrent writers is acceptable; rank is informational.
	greater, err := s.scores.CountGreaterThan(ctx, repository.Query{SongID: in.SongID, Difficulty: in.Difficulty}, in.Score)
	if err != nil {
		return types.SubmitResult{}, err
	}

	metrics.RecordSubmissionAccepted()
	if personalBest {
		metrics.RecordPersonalBest()
	}
	return types.SubmitResult{
		RecordID:        recordID,
		PersonalBest:    personalBest,
		LeaderboardRank: rank.Competition(greater),
	}, nil
}

// Leaderboard returns one page of the leaderboard for a song, optionally
// narrowed to a difficulty. Offsets past the end yield an empty page with
// an accurate total.
func (s *Service) Leaderboard(ctx context.Context, songID string, difficulty model.Difficulty, limit, offset int) (types.LeaderboardPage, error) {
	if limit <= 0 {
		limit = s.defaultLeaderboardLimit
	}
	if limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}

	q := repository.Query{SongID: songID, Difficulty: difficulty}
	total, err := s.scores.CountMatching(ctx, q)
	if err != nil {
		return types.LeaderboardPage{}, err
	}
	records, err := s.scores.Window(ctx, q, offset, limit)
	if err != nil {
		return types.LeaderboardPage{}, err
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if _, ok := seen[records[i].AccountID]; !ok {
			seen[records[i].AccountID] = struct{}{}
			ids = append(ids, records[i].AccountID)
		}
	}
	profiles, err := s.accounts.Profiles(ctx, ids)
	if err != nil {
		return types.LeaderboardPage{}, err
	}

	entries := make([]types.LeaderboardEntry, len(records))
	for i := range records {
		p := profiles[records[i].AccountID]
		entries[i] = types.LeaderboardEntry{
			Rank:     rank.Display(offset, i),
			Score:    records[i].Score,
			MaxCombo: records[i].MaxCombo,
			Accuracy: records[i].Accuracy,
			Account: types.AccountRef{
				Username:    p.Username,
				DisplayName: p.DisplayName,
				Avatar:      p.Avatar,
			},
			PlayedAt: records[i].PlayedAt,
		}
	}

	metrics.RecordLeaderboardQuery()
	return types.LeaderboardPage{
		Entries: entries,
		Total:   total,
		Page:    offset/limit + 1,
		Limit:   limit,
	}, nil
}

// History returns the account's most recent sessions plus its lifetime
// session count. A missing account yields an empty page, not an error.
func (s *Service) History(ctx context.Context, accountID string, limit int) (types.HistoryPage, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}

	total, err := s.scores.CountByAccount(ctx, accountID)
	if err != nil {
		return types.HistoryPage{}, err
	}
	records, err := s.scores.History(ctx, accountID, limit)
	if err != nil {
		return types.HistoryPage{}, err
	}

	scores := make([]types.HistoryEntry, len(records))
	for i := range records {
		scores[i] = types.HistoryEntry{
			ID:                    records[i].ID,
			SongID:                records[i].SongID,
			SongTitle:             records[i].SongTitle,
			SongArtist:            records[i].SongArtist,
			Difficulty:            string(records[i].Difficulty),
			Score:                 records[i].Score,
			MaxCombo:              records[i].MaxCombo,
			Accuracy:              records[i].Accuracy,
			Grade:                 string(records[i].Grade),
			CompletedSuccessfully: records[i].CompletedSuccessfully,
			PlayedAt:              records[i].PlayedAt,
		}
	}

	metrics.RecordHistoryQuery()
	return types.HistoryPage{Scores: scores, Total: total}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"reconcileWorkers": s.reconcileWorkers,
		"dedupeSize":       s.dedupeSize,
	}
	if s.started {
		stats["reconcileQueueLength"] = s.reconcileQueue.Len(context.Background())
		stats["trackedTokens"] = s.deduper.Size()
	}
	return stats
}

func (s *Service) unrecord(ctx context.Context, recorded bool, token string) {
	if recorded {
		s.deduper.Unrecord(ctx, token)
	}
}

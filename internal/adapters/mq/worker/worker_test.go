package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beatfall/scoreboard/internal/adapters/mq/queue"
	"github.com/beatfall/scoreboard/internal/adapters/mq/worker"
	"github.com/beatfall/scoreboard/internal/adapters/repository"
	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// countingUpdater fails each account's delta a configured number of times
// before folding it into the in-memory aggregates.
type countingUpdater struct {
	mu        sync.Mutex
	failures  map[string]int
	unknown   map[string]bool
	applied   map[string]model.AggregateStats
	callCount int
}

func newCountingUpdater() *countingUpdater {
	return &countingUpdater{
		failures: make(map[string]int),
		unknown:  make(map[string]bool),
		applied:  make(map[string]model.AggregateStats),
	}
}

func (u *countingUpdater) ApplySessionDelta(ctx context.Context, accountID string, scoreDelta int64, comboObserved int) (model.AggregateStats, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callCount++
	if u.unknown[accountID] {
		return model.AggregateStats{}, repository.ErrAccountNotFound
	}
	if u.failures[accountID] > 0 {
		u.failures[accountID]--
		return model.AggregateStats{}, repository.ErrUnavailable
	}
	stats := u.applied[accountID]
	stats.TotalScore += scoreDelta
	stats.GamesPlayed++
	if comboObserved > stats.HighestCombo {
		stats.HighestCombo = comboObserved
	}
	u.applied[accountID] = stats
	return stats, nil
}

func (u *countingUpdater) statsFor(accountID string) (model.AggregateStats, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.applied[accountID], u.callCount
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		updater := newCountingUpdater()
		pool := worker.NewPool(2, q, updater, worker.WithRetryBackoff(5*time.Millisecond))
		pool.Start(ctx)
		defer pool.Stop()
		defer q.Close()

		Convey("When a delta applies cleanly", func() {
			So(q.Enqueue(ctx, queue.Task{AccountID: "acct-1", ScoreDelta: 300, ComboObserved: 40}), ShouldBeTrue)

			Convey("Then the aggregates are reconciled", func() {
				ok := waitFor(t, time.Second, func() bool {
					stats, _ := updater.statsFor("acct-1")
					return stats.GamesPlayed == 1
				})
				So(ok, ShouldBeTrue)
				stats, _ := updater.statsFor("acct-1")
				So(stats.TotalScore, ShouldEqual, 300)
				So(stats.HighestCombo, ShouldEqual, 40)
			})
		})

		Convey("When the first attempts fail transiently", func() {
			updater.failures["acct-2"] = 2
			So(q.Enqueue(ctx, queue.Task{AccountID: "acct-2", ScoreDelta: 100}), ShouldBeTrue)

			Convey("Then the delta is retried until it sticks", func() {
				ok := waitFor(t, 2*time.Second, func() bool {
					stats, _ := updater.statsFor("acct-2")
					return stats.GamesPlayed == 1
				})
				So(ok, ShouldBeTrue)
				_, calls := updater.statsFor("acct-2")
				So(calls, ShouldBeGreaterThanOrEqualTo, 3)
			})
		})

		Convey("When the account does not exist", func() {
			updater.unknown["ghost"] = true
			So(q.Enqueue(ctx, queue.Task{AccountID: "ghost", ScoreDelta: 100}), ShouldBeTrue)

			Convey("Then the delta is dropped without retries", func() {
				waitFor(t, 200*time.Millisecond, func() bool {
					_, calls := updater.statsFor("ghost")
					return calls >= 1
				})
				time.Sleep(50 * time.Millisecond)
				stats, calls := updater.statsFor("ghost")
				So(calls, ShouldEqual, 1)
				So(stats.GamesPlayed, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a pool with a tight attempt budget", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		updater := newCountingUpdater()
		updater.failures["acct-3"] = 100
		pool := worker.NewPool(1, q, updater,
			worker.WithMaxAttempts(2),
			worker.WithRetryBackoff(time.Millisecond),
		)
		pool.Start(ctx)
		defer pool.Stop()
		defer q.Close()

		Convey("When a delta keeps failing", func() {
			So(q.Enqueue(ctx, queue.Task{AccountID: "acct-3", ScoreDelta: 100}), ShouldBeTrue)

			Convey("Then it is abandoned after the attempt budget", func() {
				waitFor(t, time.Second, func() bool {
					_, calls := updater.statsFor("acct-3")
					return calls >= 2
				})
				time.Sleep(50 * time.Millisecond)
				_, calls := updater.statsFor("acct-3")
				So(calls, ShouldEqual, 2)
			})
		})
	})
}

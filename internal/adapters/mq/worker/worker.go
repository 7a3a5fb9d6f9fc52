// Package worker runs the background reconciliation pool that re-applies
// aggregate deltas whose inline update failed after a ledger append.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/beatfall/scoreboard/internal/adapters/mq/queue"
	"github.com/beatfall/scoreboard/internal/adapters/repository"
	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/pkg/logger"
	"github.com/beatfall/scoreboard/pkg/metrics"
)

// Default reconciliation configuration constants.
const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 500 * time.Millisecond
)

// Task is what workers read off the queue.
type Task = model.AggregateDelta

// Updater applies an aggregate delta.
type Updater interface {
	ApplySessionDelta(ctx context.Context, accountID string, scoreDelta int64, comboObserved int) (model.AggregateStats, error)
}

// Source defines how workers receive tasks and requeue failed ones.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Task
	Enqueue(ctx context.Context, t queue.Task) bool
}

// Pool runs a fixed number of reconciliation workers.
type Pool struct {
	source  Source
	updater Updater

	workerCount  int
	maxAttempts  int
	retryBackoff time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
	logger logger.Logger
}

// NewPool creates a reconciliation pool with the given options.
func NewPool(workerCount int, source Source, updater Updater, opts ...Option) *Pool {
	p := &Pool{
		source:       source,
		updater:      updater,
		workerCount:  workerCount,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
		logger:       logger.Get().Named("reconcile"),
	}
	if p.workerCount < 1 {
		p.workerCount = 1
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They stop when ctx is canceled, Stop is
// called, or the task channel closes.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	metrics.UpdateWorkerCount(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
}

// Stop cancels the workers and waits for them to drain.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	metrics.UpdateWorkerCount(0)
}

func (p *Pool) run(ctx context.Context) {
	tasks := p.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			p.process(ctx, task)
			metrics.UpdateQueueSize(len(tasks))
		}
	}
}

// process applies one delta, requeueing on transient failure until the
// attempt budget runs out. An account that genuinely does not exist is
// dropped immediately; retrying cannot fix it.
func (p *Pool) process(ctx context.Context, task Task) {
	metrics.RecordReconcileRetry()
	_, err := p.updater.ApplySessionDelta(ctx, task.AccountID, task.ScoreDelta, task.ComboObserved)
	if err == nil {
		p.logger.Info(ctx, "aggregate delta reconciled",
			logger.String("accountId", task.AccountID),
			logger.String("recordId", task.RecordID),
			logger.Int("attempts", task.Attempts+1),
		)
		return
	}

	if errors.Is(err, repository.ErrAccountNotFound) {
		metrics.RecordReconcileDropped()
		p.logger.Error(ctx, "dropping aggregate delta for unknown account",
			logger.String("accountId", task.AccountID),
			logger.String("recordId", task.RecordID),
			logger.Error(err),
		)
		return
	}

	task.Attempts++
	if task.Attempts >= p.maxAttempts {
		metrics.RecordReconcileDropped()
		p.logger.Error(ctx, "abandoning aggregate delta after max attempts",
			logger.String("accountId", task.AccountID),
			logger.String("recordId", task.RecordID),
			logger.Int("attempts", task.Attempts),
			logger.Error(err),
		)
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(p.retryBackoff):
	}
	if !p.source.Enqueue(ctx, task) {
		metrics.RecordReconcileDropped()
		p.logger.Error(ctx, "reconcile queue full; aggregate delta lost",
			logger.String("accountId", task.AccountID),
			logger.String("recordId", task.RecordID),
		)
	}
}

// Package sweeper matures pending earnings once their holding period has passed.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// LockKey guards the sweep across worker replicas
const LockKey = "settlement:maturation-sweeper"

// DueEarnings lists pending earnings past their holding period
type DueEarnings interface {
	ListMaturedPendingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// Maturer moves one pending earning into the available balance
type Maturer interface {
	MatureTransaction(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID) (bool, error)
}

// Locker runs fn only while holding key
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// SweepResult summarizes one sweep. Failed and skipped earnings are in TotalFound but not ProcessedCount.
type SweepResult struct {
	ProcessedCount int
	FailedCount    int
	TotalFound     int
}

type Sweeper struct {
	txManager persistence.TxManager
	due       DueEarnings
	maturer   Maturer
	locker    Locker // nil runs unguarded
	pool      *ants.Pool
	interval  time.Duration
	batchSize int
	lockTTL   time.Duration
	logger    *slog.Logger
}

func NewSweeper(
	logger *slog.Logger,
	cfg config.SweeperConfig,
	poolSize int,
	txManager persistence.TxManager,
	due DueEarnings,
	maturer Maturer,
	locker Locker,
) (*Sweeper, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create maturation pool: %w", err)
	}

	return &Sweeper{
		txManager: txManager,
		due:       due,
		maturer:   maturer,
		locker:    locker,
		pool:      pool,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		lockTTL:   cfg.LockTTL,
		logger:    logger,
	}, nil
}

// Sweep matures every earning due at now, at most one batch per call.
// Individual failures are counted and logged; only a failed listing returns an error.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.RecordSweep(time.Since(start).Seconds()) }()

	ids, err := s.due.ListMaturedPendingIDs(ctx, now, s.batchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list matured earnings: %w", err)
	}
	if len(ids) == 0 {
		return SweepResult{}, nil
	}

	var (
		wg        sync.WaitGroup
		processed atomic.Int64
		failed    atomic.Int64
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			switch matured, err := s.mature(ctx, id); {
			case err != nil:
				failed.Add(1)
				metrics.RecordMaturation("failed")
				s.logger.Error("Failed to mature earning", "transaction_id", id.String(), "error", err)
			case matured:
				processed.Add(1)
				metrics.RecordMaturation("matured")
			default:
				metrics.RecordMaturation("skipped")
			}
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			metrics.RecordMaturation("failed")
			s.logger.Error("Failed to submit maturation", "transaction_id", id.String(), "error", err)
		}
	}
	wg.Wait()

	result := SweepResult{
		ProcessedCount: int(processed.Load()),
		FailedCount:    int(failed.Load()),
		TotalFound:     len(ids),
	}
	s.logger.Info("Maturation sweep finished",
		"found", result.TotalFound,
		"processed", result.ProcessedCount,
		"failed", result.FailedCount,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

func (s *Sweeper) mature(ctx context.Context, id uuid.UUID) (bool, error) {
	var matured bool
	err := s.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		matured, err = s.maturer.MatureTransaction(ctx, tx, id)
		return err
	})
	return matured, err
}

// Start sweeps on every tick until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting maturation sweeper",
		"interval", s.interval.String(),
		"batch_size", s.batchSize,
		"pool_size", s.pool.Cap(),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Maturation sweeper stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	sweep := func(ctx context.Context) error {
		_, err := s.Sweep(ctx, time.Now().UTC())
		return err
	}

	if s.locker == nil {
		if err := sweep(ctx); err != nil {
			s.logger.Error("Maturation sweep failed", "error", err)
		}
		return
	}

	acquired, err := s.locker.WithLock(ctx, LockKey, s.lockTTL, sweep)
	if err != nil {
		s.logger.Error("Maturation sweep failed", "error", err)
		return
	}
	if !acquired {
		s.logger.Debug("Another replica holds the sweeper lock, skipping tick")
	}
}

// Shutdown waits for running maturations, then releases the pool
func (s *Sweeper) Shutdown(timeout time.Duration) {
	s.logger.Info("Shutting down maturation pool", "running_workers", s.pool.Running())
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		s.logger.Warn("Maturation pool did not drain in time", "error", err)
	}
}

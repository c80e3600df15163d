package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeTxManager struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTxManager) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(nil)
}

type earning struct {
	amount      int64
	availableAt time.Time
	pending     bool
}

// memoryLedger is a single-wallet ledger that lists and matures earnings like the Postgres store
type memoryLedger struct {
	mu       sync.Mutex
	earnings map[uuid.UUID]*earning
	pending  int64
	balance  int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{earnings: map[uuid.UUID]*earning{}}
}

func (l *memoryLedger) credit(amount int64, availableAt time.Time) uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.New()
	l.earnings[id] = &earning{amount: amount, availableAt: availableAt, pending: true}
	l.pending += amount
	return id
}

func (l *memoryLedger) ListMaturedPendingIDs(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uuid.UUID, 0)
	for id, e := range l.earnings {
		if e.pending && !e.availableAt.After(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (l *memoryLedger) MatureTransaction(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.earnings[id]
	if !ok || !e.pending {
		return false, nil
	}
	e.pending = false
	l.pending -= e.amount
	l.balance += e.amount
	return true, nil
}

func (l *memoryLedger) totals() (pending, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending, l.balance
}

type MockDueEarnings struct {
	mock.Mock
}

func (m *MockDueEarnings) ListMaturedPendingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockMaturer struct {
	mock.Mock
}

func (m *MockMaturer) MatureTransaction(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

type fakeLocker struct {
	held  bool
	err   error
	calls int
}

func (f *fakeLocker) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) (bool, error) {
	f.calls++
	if f.err != nil || f.held {
		return false, f.err
	}
	return true, fn(ctx)
}

var testSweeperConfig = config.SweeperConfig{Interval: time.Minute, BatchSize: 100, LockTTL: time.Minute}

func newTestSweeper(t *testing.T, due DueEarnings, maturer Maturer, locker Locker) (*Sweeper, *fakeTxManager) {
	t.Helper()
	tx := &fakeTxManager{}
	s, err := NewSweeper(slog.New(slog.NewJSONHandler(io.Discard, nil)), testSweeperConfig, 4, tx, due, maturer, locker)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown(time.Second) })
	return s, tx
}

func TestSweeper_HoldingPeriod(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ledger := newMemoryLedger()
	ledger.credit(750, now.Add(72*time.Hour))
	s, _ := newTestSweeper(t, ledger, ledger, nil)

	result, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
	pending, balance := ledger.totals()
	assert.Equal(t, int64(750), pending)
	assert.Equal(t, int64(0), balance)

	result, err = s.Sweep(ctx, now.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.TotalFound)
	pending, balance = ledger.totals()
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, int64(750), balance)

	result, err = s.Sweep(ctx, now.Add(96*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.TotalFound)
	_, balance = ledger.totals()
	assert.Equal(t, int64(750), balance, "a matured earning must never move twice")
}

func TestSweeper_ConcurrentSweepsMoveEachEarningOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	ledger := newMemoryLedger()
	var total int64
	for i := 1; i <= 20; i++ {
		ledger.credit(int64(i*10), now.Add(-time.Minute))
		total += int64(i * 10)
	}
	first, _ := newTestSweeper(t, ledger, ledger, nil)
	second, _ := newTestSweeper(t, ledger, ledger, nil)

	var wg sync.WaitGroup
	results := make([]SweepResult, 2)
	for i, s := range []*Sweeper{first, second} {
		wg.Add(1)
		go func(i int, s *Sweeper) {
			defer wg.Done()
			results[i], _ = s.Sweep(ctx, now)
		}(i, s)
	}
	wg.Wait()

	pending, balance := ledger.totals()
	assert.Equal(t, int64(0), pending)
	assert.Equal(t, total, balance)
	assert.Equal(t, 20, results[0].ProcessedCount+results[1].ProcessedCount)
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("FailuresDoNotAbortTheBatch", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		ok, lost, broken := uuid.New(), uuid.New(), uuid.New()
		due.On("ListMaturedPendingIDs", ctx, now, 100).Return([]uuid.UUID{ok, lost, broken}, nil).Once()
		maturer.On("MatureTransaction", ctx, mock.Anything, ok).Return(true, nil).Once()
		maturer.On("MatureTransaction", ctx, mock.Anything, lost).Return(false, nil).Once()
		maturer.On("MatureTransaction", ctx, mock.Anything, broken).Return(false, errors.New("deadlock detected")).Once()
		s, tx := newTestSweeper(t, due, maturer, nil)

		result, err := s.Sweep(ctx, now)

		require.NoError(t, err)
		assert.Equal(t, SweepResult{ProcessedCount: 1, FailedCount: 1, TotalFound: 3}, result)
		assert.Equal(t, 3, tx.calls, "each maturation runs in its own transaction")
		maturer.AssertExpectations(t)
	})

	t.Run("ListingErrorIsReturned", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		due.On("ListMaturedPendingIDs", ctx, now, 100).Return(nil, errors.New("connection refused")).Once()
		s, _ := newTestSweeper(t, due, maturer, nil)

		_, err := s.Sweep(ctx, now)

		assert.Error(t, err)
		maturer.AssertNotCalled(t, "MatureTransaction", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSweeper_Tick(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsWhenLockHeldElsewhere", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		locker := &fakeLocker{held: true}
		s, _ := newTestSweeper(t, due, maturer, locker)

		s.tick(ctx)

		assert.Equal(t, 1, locker.calls)
		due.AssertNotCalled(t, "ListMaturedPendingIDs", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SweepsUnderLock", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		due.On("ListMaturedPendingIDs", mock.Anything, mock.AnythingOfType("time.Time"), 100).Return([]uuid.UUID{}, nil).Once()
		locker := &fakeLocker{}
		s, _ := newTestSweeper(t, due, maturer, locker)

		s.tick(ctx)

		due.AssertExpectations(t)
	})

	t.Run("LockErrorSkipsTick", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		locker := &fakeLocker{err: errors.New("redis down")}
		s, _ := newTestSweeper(t, due, maturer, locker)

		s.tick(ctx)

		due.AssertNotCalled(t, "ListMaturedPendingIDs", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RunsWithoutLocker", func(t *testing.T) {
		due, maturer := new(MockDueEarnings), new(MockMaturer)
		due.On("ListMaturedPendingIDs", mock.Anything, mock.AnythingOfType("time.Time"), 100).Return([]uuid.UUID{}, nil).Once()
		s, _ := newTestSweeper(t, due, maturer, nil)

		s.tick(ctx)

		due.AssertExpectations(t)
	})
}

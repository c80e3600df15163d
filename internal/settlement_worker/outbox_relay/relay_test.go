package outbox_relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMessage(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func newMessage(t *testing.T, id int64, attempts int) *outbox.Message {
	t.Helper()
	walletID := uuid.New()
	event := outbox.NewEvent(outbox.EventEarningMatured, 750)
	event.WalletID = &walletID
	event.CorrelationID = "corr-" + uuid.NewString()
	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

func newTestRelay(repo *MockOutboxRepo, publisher *MockPublisher) *Relay {
	cfg := &config.OutboxConfig{PollingInterval: time.Second, BatchSize: 50, MaxRetryAttempts: 3}
	return NewRelay(cfg, repo, publisher, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRelay_RelayPending(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesAndMarksProcessed", func(t *testing.T) {
		repo, publisher := new(MockOutboxRepo), new(MockPublisher)
		first, second := newMessage(t, 1, 0), newMessage(t, 2, 0)
		repo.On("GetPending", ctx, 50).Return([]*outbox.Message{first, second}, nil).Once()
		publisher.On("PublishMessage", mock.Anything, first).Return(nil).Once()
		publisher.On("PublishMessage", mock.Anything, second).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(2), outbox.StatusProcessed).Return(nil).Once()

		before := testutil.ToFloat64(metrics.OutboxPublishedTotal.WithLabelValues("published"))
		published, err := newTestRelay(repo, publisher).RelayPending(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, published)
		assert.Equal(t, before+2, testutil.ToFloat64(metrics.OutboxPublishedTotal.WithLabelValues("published")))
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("FailureCountsAttempt", func(t *testing.T) {
		repo, publisher := new(MockOutboxRepo), new(MockPublisher)
		msg := newMessage(t, 3, 0)
		repo.On("GetPending", ctx, 50).Return([]*outbox.Message{msg}, nil).Once()
		publisher.On("PublishMessage", mock.Anything, msg).Return(errors.New("broker down")).Once()
		repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()

		published, err := newTestRelay(repo, publisher).RelayPending(ctx)

		require.NoError(t, err)
		assert.Zero(t, published)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("LastAttemptMarksFailed", func(t *testing.T) {
		repo, publisher := new(MockOutboxRepo), new(MockPublisher)
		msg := newMessage(t, 4, 2)
		repo.On("GetPending", ctx, 50).Return([]*outbox.Message{msg}, nil).Once()
		publisher.On("PublishMessage", mock.Anything, msg).Return(errors.New("broker down")).Once()
		repo.On("IncrementAttempts", mock.Anything, int64(4)).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(4), outbox.StatusFailedToPublish).Return(nil).Once()

		_, err := newTestRelay(repo, publisher).RelayPending(ctx)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("NothingPending", func(t *testing.T) {
		repo, publisher := new(MockOutboxRepo), new(MockPublisher)
		repo.On("GetPending", ctx, 50).Return([]*outbox.Message{}, nil).Once()

		published, err := newTestRelay(repo, publisher).RelayPending(ctx)

		require.NoError(t, err)
		assert.Zero(t, published)
		publisher.AssertNotCalled(t, "PublishMessage", mock.Anything, mock.Anything)
	})

	t.Run("ListingError", func(t *testing.T) {
		repo, publisher := new(MockOutboxRepo), new(MockPublisher)
		repo.On("GetPending", ctx, 50).Return(nil, errors.New("connection refused")).Once()

		_, err := newTestRelay(repo, publisher).RelayPending(ctx)

		assert.Error(t, err)
	})
}

func TestRelay_StartStopsOnCancel(t *testing.T) {
	repo, publisher := new(MockOutboxRepo), new(MockPublisher)
	repo.On("GetPending", mock.Anything, 50).Return([]*outbox.Message{}, nil).Maybe()
	relay := newTestRelay(repo, publisher)
	relay.pollInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}

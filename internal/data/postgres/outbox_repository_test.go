package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxRowColumns = []string{"id", "event_id", "aggregate_id", "event_type", "payload", "status", "attempts",
	"created_at", "last_attempt_at"}

func newCreditedMessage(t *testing.T) (*outbox.Message, uuid.UUID) {
	t.Helper()
	walletID := uuid.New()
	event := outbox.NewEvent(outbox.EventEarningCredited, 750)
	event.WalletID = &walletID
	message, err := outbox.NewMessage(event)
	require.NoError(t, err)
	return message, walletID
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("INSERT INTO wallet_event_outbox")

	t.Run("success assigns id", func(t *testing.T) {
		message, walletID := newCreditedMessage(t)
		mock.ExpectQuery(query).
			WithArgs(message.EventID, walletID, outbox.EventEarningCredited, message.Payload,
				outbox.StatusPending, 0, message.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, message))
		assert.Equal(t, int64(42), message.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		message, _ := newCreditedMessage(t)
		dbErr := errors.New("duplicate key value violates unique constraint")
		mock.ExpectQuery(query).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(dbErr)

		err := repo.Create(ctx, message)
		assert.ErrorIs(t, err, dbErr)
		assert.Zero(t, message.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("FROM wallet_event_outbox")
	now := time.Now().UTC()

	message, walletID := newCreditedMessage(t)
	rows := pgxmock.NewRows(outboxRowColumns).
		AddRow(int64(1), message.EventID, walletID, outbox.EventEarningCredited, []byte(message.Payload),
			outbox.StatusPending, 0, now, nil).
		AddRow(int64(2), uuid.New(), walletID, outbox.EventEarningMatured, []byte(`{"amount":750}`),
			outbox.StatusPending, 2, now, &now)
	mock.ExpectQuery(query).WithArgs(outbox.StatusPending, 10).WillReturnRows(rows)

	messages, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].ID)
	assert.Nil(t, messages[0].LastAttemptAt)
	assert.Equal(t, 2, messages[1].Attempts)
	assert.NotNil(t, messages[1].LastAttemptAt)

	event, err := messages[0].GetEvent()
	require.NoError(t, err)
	assert.Equal(t, int64(750), event.Amount)
	assert.Equal(t, &walletID, event.WalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := regexp.QuoteMeta("UPDATE wallet_event_outbox")

	mock.ExpectExec(query).
		WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.UpdateStatus(ctx, 7, outbox.StatusProcessed))

	mock.ExpectExec(query).
		WithArgs(outbox.StatusProcessed, pgxmock.AnyArg(), int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := repo.UpdateStatus(ctx, 8, outbox.StatusProcessed)
	assert.Equal(t, outbox.ErrMessageNotFound{ID: 8}, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_IncrementAttemptsAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1")).
		WithArgs(pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM wallet_event_outbox")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.IncrementAttempts(ctx, 3))
	assert.Equal(t, outbox.ErrMessageNotFound{ID: 3}, repo.Delete(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_GetByEventID_NotFound(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	eventID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE event_id = $1")).WithArgs(eventID).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEventID(ctx, eventID)
	assert.IsType(t, outbox.ErrMessageNotFound{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

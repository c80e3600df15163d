package handler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/api_gateway/middleware"
	"github.com/pawsitter-settlement/internal/api_gateway/service"
	"github.com/pawsitter-settlement/internal/api_gateway/webhook"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// setupTestRouter mounts the correlation and caller middleware the real router uses
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	return r
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) CompleteBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*service.SettlementResult, error) {
	args := m.Called(ctx, bookingID, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SettlementResult), args.Error(1)
}

type MockCancellationService struct {
	mock.Mock
}

func (m *MockCancellationService) QuoteRefund(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*policy.Quote, error) {
	args := m.Called(ctx, bookingID, callerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.Quote), args.Error(1)
}

func (m *MockCancellationService) CancelBooking(ctx context.Context, bookingID, callerID uuid.UUID, now time.Time) (*service.CancellationResult, error) {
	args := m.Called(ctx, bookingID, callerID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CancellationResult), args.Error(1)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetWallet(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, sitterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletService) ListTransactions(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*wallet.Transaction, int64, error) {
	args := m.Called(ctx, sitterID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*wallet.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) ListActivity(ctx context.Context, sitterID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	args := m.Called(ctx, sitterID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*journal.Entry), args.Get(1).(int64), args.Error(2)
}

type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) RequestWithdrawal(ctx context.Context, sitterID uuid.UUID, amount int64, method wallet.PayoutMethod, details wallet.PayoutDetails) (*withdrawal.Request, error) {
	args := m.Called(ctx, sitterID, amount, method, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) HandleWebhook(ctx context.Context, rawBody []byte, signature, eventIDHeader string) (webhook.Outcome, error) {
	args := m.Called(ctx, rawBody, signature, eventIDHeader)
	return args.Get(0).(webhook.Outcome), args.Error(1)
}

package webhook

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) ExecuteTx(ctx context.Context, fn func(pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type MockEventLog struct {
	mock.Mock
}

func (m *MockEventLog) Record(ctx context.Context, event *payment.ProcessedEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventLog) SetOutcome(ctx context.Context, eventID string, outcome payment.EventOutcome) error {
	args := m.Called(ctx, eventID, outcome)
	return args.Error(0)
}

func (m *MockEventLog) WithTx(tx pgx.Tx) payment.EventLog {
	return m
}

type MockReverser struct {
	mock.Mock
}

func (m *MockReverser) ReverseEarning(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, reason string) (bool, error) {
	args := m.Called(ctx, tx, bookingID, reason)
	return args.Bool(0), args.Error(1)
}

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) MarkCompleted(ctx context.Context, id uuid.UUID, sitterEarnings, platformFee int64, completedAt time.Time) error {
	args := m.Called(ctx, id, sitterEarnings, platformFee, completedAt)
	return args.Error(0)
}

func (m *MockBookingRepo) MarkCancelled(ctx context.Context, id uuid.UUID, refundAmount, deductionAmount int64, cancelledAt time.Time) error {
	args := m.Called(ctx, id, refundAmount, deductionAmount, cancelledAt)
	return args.Error(0)
}

func (m *MockBookingRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status booking.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepo) WithTx(tx pgx.Tx) booking.Repository {
	return m
}

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) CreatePayment(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*payment.Payment, error) {
	args := m.Called(ctx, gatewayPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetPaymentByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetCapturedPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status payment.Status, failureReason string) error {
	args := m.Called(ctx, id, status, failureReason)
	return args.Error(0)
}

func (m *MockPaymentRepo) CreateRefund(ctx context.Context, r *payment.Refund) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetRefundByID(ctx context.Context, id uuid.UUID) (*payment.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}

func (m *MockPaymentRepo) GetRefundByGatewayID(ctx context.Context, gatewayRefundID string) (*payment.Refund, error) {
	args := m.Called(ctx, gatewayRefundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}

func (m *MockPaymentRepo) AttachGatewayRefundID(ctx context.Context, id uuid.UUID, gatewayRefundID string) error {
	args := m.Called(ctx, id, gatewayRefundID)
	return args.Error(0)
}

func (m *MockPaymentRepo) UpdateRefundStatus(ctx context.Context, id uuid.UUID, status payment.RefundStatus, failureReason string) error {
	args := m.Called(ctx, id, status, failureReason)
	return args.Error(0)
}

func (m *MockPaymentRepo) SumProcessedRefunds(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepo) CreateDispute(ctx context.Context, d *payment.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetDisputeByGatewayID(ctx context.Context, gatewayDisputeID string) (*payment.Dispute, error) {
	args := m.Called(ctx, gatewayDisputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Dispute), args.Error(1)
}

func (m *MockPaymentRepo) UpdateDisputeStatus(ctx context.Context, id uuid.UUID, status payment.DisputeStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPaymentRepo) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

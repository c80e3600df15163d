package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
	"github.com/stretchr/testify/mock"
)

// fakeTxManager runs the unit of work without a database
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) ExecuteTx(ctx context.Context, fn func(pgx.Tx) error) error {
	f.calls++
	return fn(nil)
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

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) CreateIfNotExists(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepo) GetBySitterID(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, sitterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) LockBySitterID(ctx context.Context, sitterID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, sitterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Update(ctx context.Context, w *wallet.Wallet) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWalletRepo) WithTx(tx pgx.Tx) wallet.Repository {
	return m
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) CreateEarning(ctx context.Context, t *wallet.Transaction) (bool, error) {
	args := m.Called(ctx, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepo) Create(ctx context.Context, t *wallet.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepo) GetEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) LockEarningByBookingID(ctx context.Context, bookingID uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status wallet.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepo) ListMaturedPendingIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTransactionRepo) ListByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*wallet.Transaction, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) wallet.TransactionRepository {
	return m
}

type MockWithdrawalRepo struct {
	mock.Mock
}

func (m *MockWithdrawalRepo) Create(ctx context.Context, r *withdrawal.Request) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockWithdrawalRepo) WithTx(tx pgx.Tx) withdrawal.Repository {
	return m
}

type MockPolicyRepo struct {
	mock.Mock
}

func (m *MockPolicyRepo) GetActive(ctx context.Context) (*policy.Policy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.Policy), args.Error(1)
}

func (m *MockPolicyRepo) CreateActive(ctx context.Context, p *policy.Policy) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPolicyRepo) WithTx(tx pgx.Tx) policy.Repository {
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

type MockJournalRepo struct {
	mock.Mock
}

func (m *MockJournalRepo) Append(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) ListBySitterID(ctx context.Context, sitterID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, sitterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) CountBySitterID(ctx context.Context, sitterID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sitterID)
	return args.Get(0).(int64), args.Error(1)
}

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) GetOrCreateWallet(ctx context.Context, tx pgx.Tx, sitterID uuid.UUID) (*wallet.Wallet, error) {
	args := m.Called(ctx, tx, sitterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerStore) CreditPendingEarning(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, bookingID uuid.UUID, availableAt time.Time, metadata wallet.Metadata) (*wallet.Transaction, bool, error) {
	args := m.Called(ctx, tx, walletID, amount, bookingID, availableAt, metadata)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*wallet.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockLedgerStore) DebitAvailable(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (*wallet.Wallet, error) {
	args := m.Called(ctx, tx, walletID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerStore) RecordWithdrawalTransaction(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, withdrawalID uuid.UUID) (*wallet.Transaction, error) {
	args := m.Called(ctx, tx, walletID, amount, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockLedgerStore) PublishEvent(ctx context.Context, tx pgx.Tx, event *outbox.Event, w *wallet.Wallet) error {
	args := m.Called(ctx, tx, event, w)
	return args.Error(0)
}

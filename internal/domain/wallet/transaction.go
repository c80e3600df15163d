package wallet

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType defines the kinds of ledger entries
type TransactionType string

const (
	TransactionTypeEarning    TransactionType = "earning"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// TransactionStatus defines ledger entry states
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Metadata is free-form context stored with a ledger entry
type Metadata map[string]interface{}

// Transaction is an append-only wallet ledger entry. Amount is signed.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	WalletID     uuid.UUID         `json:"wallet_id"`
	BookingID    *uuid.UUID        `json:"booking_id,omitempty"`
	WithdrawalID *uuid.UUID        `json:"withdrawal_id,omitempty"`
	Amount       int64             `json:"amount"`
	Type         TransactionType   `json:"type"`
	Status       TransactionStatus `json:"status"`
	AvailableAt  *time.Time        `json:"available_at,omitempty"` // earnings only
	Description  string            `json:"description"`
	Metadata     Metadata          `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewEarning builds a pending earning for a completed booking
func NewEarning(walletID uuid.UUID, amount int64, bookingID uuid.UUID, availableAt time.Time, metadata Metadata) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	available := availableAt.UTC()
	return &Transaction{
		ID:          uuid.New(),
		WalletID:    walletID,
		BookingID:   &bookingID,
		Amount:      amount,
		Type:        TransactionTypeEarning,
		Status:      TransactionStatusPending,
		AvailableAt: &available,
		Description: "Earning for booking " + bookingID.String(),
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewWithdrawal builds the negative ledger entry for a withdrawal request
func NewWithdrawal(walletID uuid.UUID, amount int64, withdrawalID uuid.UUID) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		WithdrawalID: &withdrawalID,
		Amount:       -amount,
		Type:         TransactionTypeWithdrawal,
		Status:       TransactionStatusCompleted,
		Description:  "Withdrawal request " + withdrawalID.String(),
		Metadata:     Metadata{"withdrawal_id": withdrawalID.String()},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewAdjustment builds a signed correction entry, e.g. a dispute clawback
func NewAdjustment(walletID uuid.UUID, amount int64, bookingID *uuid.UUID, description string, metadata Metadata) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:          uuid.New(),
		WalletID:    walletID,
		BookingID:   bookingID,
		Amount:      amount,
		Type:        TransactionTypeAdjustment,
		Status:      TransactionStatusCompleted,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CanMature reports whether this is a pending earning
func (t *Transaction) CanMature() error {
	if t.Type != TransactionTypeEarning {
		return ErrTransactionNotAnEarning
	}
	if t.Status != TransactionStatusPending {
		return ErrTransactionNotPending
	}
	return nil
}

// IsMatured reports whether a pending earning has passed its holding period
func (t *Transaction) IsMatured(now time.Time) bool {
	return t.AvailableAt != nil && !t.AvailableAt.After(now)
}

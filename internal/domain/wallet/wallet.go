package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrPendingUnderflow        = errors.New("pending amount cannot go negative")
	ErrBalanceUnderflow        = errors.New("balance cannot go negative")
	ErrTransactionNotPending   = errors.New("transaction is not pending")
	ErrTransactionNotAnEarning = errors.New("transaction is not an earning")
)

// PayoutMethod is the sitter's preferred payout rail
type PayoutMethod string

const (
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodUPI          PayoutMethod = "upi"
)

// PayoutDetails is the payout destination saved on the wallet for reuse
type PayoutDetails struct {
	AccountHolderName string `json:"account_holder_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSC              string `json:"ifsc,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	UPIID             string `json:"upi_id,omitempty"`
}

// Wallet holds one sitter's earnings. Amounts are in minor currency units.
type Wallet struct {
	ID            uuid.UUID      `json:"id"`
	SitterID      uuid.UUID      `json:"sitter_id"`
	Balance       int64          `json:"balance"`        // available, withdrawable
	PendingAmount int64          `json:"pending_amount"` // earned, still in the holding period
	TotalEarnings int64          `json:"total_earnings"` // lifetime gross credits
	Currency      string         `json:"currency"`
	PayoutMethod  *PayoutMethod  `json:"payout_method,omitempty"`
	PayoutDetails *PayoutDetails `json:"payout_details,omitempty"`
	Version       int            `json:"version"` // For optimistic locking
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewWallet creates an empty wallet for a sitter
func NewWallet(sitterID uuid.UUID, currency string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		SitterID:  sitterID,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreditPending books a new earning into the pending bucket and lifetime total
func (w *Wallet) CreditPending(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.PendingAmount += amount
	w.TotalEarnings += amount
	w.touch()
	return nil
}

// Mature moves a matured earning from pending into the available balance
func (w *Wallet) Mature(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.PendingAmount < amount {
		return ErrPendingUnderflow
	}
	w.PendingAmount -= amount
	w.Balance += amount
	w.touch()
	return nil
}

// Debit removes funds from the available balance
func (w *Wallet) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.Balance < amount {
		return ErrBalanceUnderflow
	}
	w.Balance -= amount
	w.touch()
	return nil
}

// ReleasePending drops an earning that never matured. TotalEarnings is left as is.
func (w *Wallet) ReleasePending(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if w.PendingAmount < amount {
		return ErrPendingUnderflow
	}
	w.PendingAmount -= amount
	w.touch()
	return nil
}

// SetPayoutDestination remembers the payout destination for future withdrawals
func (w *Wallet) SetPayoutDestination(method PayoutMethod, details PayoutDetails) {
	w.PayoutMethod = &method
	w.PayoutDetails = &details
	w.touch()
}

func (w *Wallet) touch() {
	w.UpdatedAt = time.Now().UTC()
	w.Version++
}

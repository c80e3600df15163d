package withdrawal

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/domain/wallet"
)

// Status defines withdrawal request states
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Request is a sitter's payout request. The funds leave the wallet balance when it is created;
// the external payout processor moves it through the remaining states.
type Request struct {
	ID             uuid.UUID            `json:"id"`
	WalletID       uuid.UUID            `json:"wallet_id"`
	SitterID       uuid.UUID            `json:"sitter_id"`
	Amount         int64                `json:"amount"`
	PaymentMethod  wallet.PayoutMethod  `json:"payment_method"`
	PaymentDetails wallet.PayoutDetails `json:"payment_details"`
	Status         Status               `json:"status"`
	FailureReason  string               `json:"failure_reason,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func NewRequest(walletID, sitterID uuid.UUID, amount int64, method wallet.PayoutMethod, details wallet.PayoutDetails) *Request {
	now := time.Now().UTC()
	return &Request{
		ID:             uuid.New(),
		WalletID:       walletID,
		SitterID:       sitterID,
		Amount:         amount,
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ValidateDestination checks that the payout details carry what the method needs.
// It returns the name of the first missing field, or "" when the destination is usable.
func ValidateDestination(method wallet.PayoutMethod, details wallet.PayoutDetails) (field string, ok bool) {
	switch method {
	case wallet.PayoutMethodBankTransfer:
		required := []struct {
			name  string
			value string
		}{
			{"account_holder_name", details.AccountHolderName},
			{"account_number", details.AccountNumber},
			{"ifsc", details.IFSC},
		}
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				return r.name, false
			}
		}
		return "", true
	case wallet.PayoutMethodUPI:
		if !strings.Contains(details.UPIID, "@") {
			return "upi_id", false
		}
		return "", true
	default:
		return "payment_method", false
	}
}

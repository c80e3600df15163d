// Package journal is the append-only audit trail of wallet events, projected from the event stream.
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/domain/outbox"
)

// Entry is one settlement event as stored in the journal
type Entry struct {
	EventID       uuid.UUID              `json:"event_id" bson:"event_id"`
	EventType     outbox.EventType       `json:"event_type" bson:"event_type"`
	WalletID      *uuid.UUID             `json:"wallet_id,omitempty" bson:"wallet_id,omitempty"`
	SitterID      *uuid.UUID             `json:"sitter_id,omitempty" bson:"sitter_id,omitempty"`
	BookingID     *uuid.UUID             `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	TransactionID *uuid.UUID             `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	WithdrawalID  *uuid.UUID             `json:"withdrawal_id,omitempty" bson:"withdrawal_id,omitempty"`
	RefundID      *uuid.UUID             `json:"refund_id,omitempty" bson:"refund_id,omitempty"`
	Amount        int64                  `json:"amount" bson:"amount"` // minor units
	BalanceAfter  *int64                 `json:"balance_after,omitempty" bson:"balance_after,omitempty"`
	PendingAfter  *int64                 `json:"pending_after,omitempty" bson:"pending_after,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty" bson:"attributes,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at" bson:"occurred_at"`
	RecordedAt    time.Time              `json:"recorded_at" bson:"recorded_at"`
}

// FromEvent projects a published event into a journal entry
func FromEvent(e *outbox.Event) *Entry {
	return &Entry{
		EventID:       e.EventID,
		EventType:     e.Type,
		WalletID:      e.WalletID,
		SitterID:      e.SitterID,
		BookingID:     e.BookingID,
		TransactionID: e.TransactionID,
		WithdrawalID:  e.WithdrawalID,
		RefundID:      e.RefundID,
		Amount:        e.Amount,
		BalanceAfter:  e.BalanceAfter,
		PendingAfter:  e.PendingAfter,
		Attributes:    e.Attributes,
		CorrelationID: e.CorrelationID,
		OccurredAt:    e.OccurredAt,
		RecordedAt:    time.Now().UTC(),
	}
}

package outbox

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a settlement event published through the outbox
type EventType string

const (
	EventEarningCredited     EventType = "earning.credited"
	EventEarningMatured      EventType = "earning.matured"
	EventEarningReversed     EventType = "earning.reversed"
	EventWithdrawalRequested EventType = "withdrawal.requested"
	EventRefundRequested     EventType = "refund.requested"
)

// Event is the payload carried by an outbox message and published to the wallet events topic.
// BalanceAfter and PendingAfter snapshot the wallet right after the change.
type Event struct {
	EventID       uuid.UUID              `json:"event_id"`
	Type          EventType              `json:"type"`
	WalletID      *uuid.UUID             `json:"wallet_id,omitempty"`
	SitterID      *uuid.UUID             `json:"sitter_id,omitempty"`
	BookingID     *uuid.UUID             `json:"booking_id,omitempty"`
	TransactionID *uuid.UUID             `json:"transaction_id,omitempty"`
	WithdrawalID  *uuid.UUID             `json:"withdrawal_id,omitempty"`
	RefundID      *uuid.UUID             `json:"refund_id,omitempty"`
	Amount        int64                  `json:"amount"`
	BalanceAfter  *int64                 `json:"balance_after,omitempty"`
	PendingAfter  *int64                 `json:"pending_after,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewEvent stamps a fresh event id and time
func NewEvent(eventType EventType, amount int64) *Event {
	return &Event{
		EventID:    uuid.New(),
		Type:       eventType,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

// AggregateID is the partition key: the wallet for wallet events, otherwise the booking
func (e *Event) AggregateID() uuid.UUID {
	switch {
	case e.WalletID != nil:
		return *e.WalletID
	case e.BookingID != nil:
		return *e.BookingID
	default:
		return e.EventID
	}
}

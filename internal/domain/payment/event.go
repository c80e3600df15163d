package payment

import "time"

// EventOutcome is the terminal classification of a gateway event
type EventOutcome string

const (
	OutcomeApplied EventOutcome = "applied"
	OutcomeNoop    EventOutcome = "noop"
	OutcomeIgnored EventOutcome = "ignored"

	// OutcomeRejected marks a verified event whose payload could not be applied
	OutcomeRejected EventOutcome = "rejected"
)

// ProcessedEvent is the idempotency record of a gateway event
type ProcessedEvent struct {
	EventID    string       `json:"event_id"`
	EventType  string       `json:"event_type"`
	Outcome    EventOutcome `json:"outcome,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
}

package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/messaging/producers"
)

// JournalEventHandler projects wallet events into the journal
type JournalEventHandler struct {
	journal journal.Repository
	dlq     producers.DeadLetterPublisher
	logger  *slog.Logger
}

// NewJournalEventHandler creates a new handler. dlq may be nil, in which case undecodable
// messages are retried and block their partition until an operator intervenes.
func NewJournalEventHandler(logger *slog.Logger, journalRepo journal.Repository, dlq producers.DeadLetterPublisher) *JournalEventHandler {
	return &JournalEventHandler{
		journal: journalRepo,
		dlq:     dlq,
		logger:  logger,
	}
}

// HandleMessage appends the event. Redelivered events are acknowledged without a second entry.
func (h *JournalEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	if event.CorrelationID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, event.CorrelationID)
	}
	log := logger.FromContext(ctx, h.logger).With(
		"event_id", event.EventID.String(),
		"event_type", string(event.Type),
	)

	if err := h.journal.Append(ctx, journal.FromEvent(event)); err != nil {
		if errors.Is(err, journal.ErrDuplicateEntry{}) {
			log.Debug("Wallet event already journaled")
			return nil
		}
		log.Error("Failed to journal wallet event", "error", err)
		return fmt.Errorf("failed to journal event %s: %w", event.EventID.String(), err)
	}

	log.Debug("Journaled wallet event")
	return nil
}

func decodeEvent(value []byte) (*outbox.Event, error) {
	var event outbox.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	if event.EventID == uuid.Nil {
		return nil, errors.New("event_id is missing")
	}
	if event.Type == "" {
		return nil, errors.New("type is missing")
	}
	return &event, nil
}

func (h *JournalEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	reason := "undecodable wallet event: " + cause.Error()
	h.logger.Error("Failed to decode wallet event", "error", cause, "message_key", string(key))

	if h.dlq == nil {
		return errors.New(reason)
	}
	if err := h.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish undecodable event to DLQ", "dlq_error", err, "message_key", string(key))
		return fmt.Errorf("%s: %w", reason, err)
	}
	return nil
}

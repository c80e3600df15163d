// Package outbox_relay publishes committed outbox rows to the wallet events topic.
package outbox_relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/metrics"
)

// Publisher hands one outbox message to the broker
type Publisher interface {
	PublishMessage(ctx context.Context, message *outbox.Message) error
}

// Relay polls pending outbox messages. Delivery is at least once; the journal dedupes by event id.
type Relay struct {
	outboxRepo       outbox.Repository
	publisher        Publisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewRelay(cfg *config.OutboxConfig, outboxRepo outbox.Repository, publisher Publisher, logger *slog.Logger) *Relay {
	return &Relay{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("Starting outbox relay",
		"poll_interval", r.pollInterval.String(),
		"batch_size", r.batchSize,
		"max_retry_attempts", r.maxRetryAttempts,
	)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopping")
			return
		case <-ticker.C:
			if _, err := r.RelayPending(ctx); err != nil {
				r.logger.Error("Outbox relay batch failed", "error", err)
			}
		}
	}
}

// RelayPending publishes one batch and returns how many messages reached the broker
func (r *Relay) RelayPending(ctx context.Context) (int, error) {
	messages, err := r.outboxRepo.GetPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	r.logger.Debug("Relaying pending outbox messages", "count", len(messages))

	published := 0
	for _, msg := range messages {
		if r.relay(ctx, msg) {
			published++
		}
	}
	return published, nil
}

func (r *Relay) relay(ctx context.Context, msg *outbox.Message) bool {
	log := r.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String(), "event_type", string(msg.EventType))
	if event, err := msg.GetEvent(); err == nil && event.CorrelationID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, event.CorrelationID)
		log = log.With("correlation_id", event.CorrelationID)
	}

	if err := r.publisher.PublishMessage(ctx, msg); err != nil {
		log.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", err)
		metrics.RecordOutboxPublish("failed")

		if errInc := r.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			log.Error("Failed to increment outbox attempts", "error", errInc)
			return false
		}
		if msg.Attempts+1 >= r.maxRetryAttempts {
			log.Warn("Outbox message exhausted its attempts, marking as FAILED_TO_PUBLISH", "attempts", msg.Attempts+1)
			metrics.RecordOutboxPublish("abandoned")
			if errUpdate := r.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
				log.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "error", errUpdate)
			}
		}
		return false
	}

	// A failure here republishes the message on the next tick
	if err := r.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); err != nil {
		log.Error("Published outbox message but failed to mark it PROCESSED", "error", err)
	}
	metrics.RecordOutboxPublish("published")
	log.Debug("Relayed outbox message")
	return true
}

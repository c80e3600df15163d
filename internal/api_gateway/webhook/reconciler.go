// Package webhook reconciles payment gateway webhooks into payments, refunds, disputes and,
// for lost disputes, the sitter's wallet.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/domain/shared"
	"github.com/pawsitter-settlement/internal/logger"
	"github.com/pawsitter-settlement/internal/platform/metrics"
	"github.com/pawsitter-settlement/internal/platform/persistence"
)

// Outcome is what a delivery amounted to
type Outcome string

const (
	OutcomeApplied   Outcome = Outcome(payment.OutcomeApplied)
	OutcomeNoop      Outcome = Outcome(payment.OutcomeNoop)
	OutcomeIgnored   Outcome = Outcome(payment.OutcomeIgnored)
	OutcomeRejected  Outcome = Outcome(payment.OutcomeRejected)
	OutcomeDuplicate Outcome = "duplicate"
)

// Reconciler verifies, de-duplicates and dispatches gateway events
type Reconciler struct {
	secret    []byte
	txManager persistence.TxManager
	events    payment.EventLog
	registry  *Registry
	logger    *slog.Logger
}

func NewReconciler(logger *slog.Logger, secret string, txManager persistence.TxManager, events payment.EventLog, registry *Registry) *Reconciler {
	return &Reconciler{
		secret:    []byte(secret),
		txManager: txManager,
		events:    events,
		registry:  registry,
		logger:    logger,
	}
}

// HandleWebhook processes one delivery. Nothing is written unless the signature matches the raw body.
// The event id is recorded in the same transaction as its effects, so a redelivery after commit is a
// duplicate and a redelivery after rollback is processed again.
func (r *Reconciler) HandleWebhook(ctx context.Context, rawBody []byte, signature, eventIDHeader string) (Outcome, error) {
	log := logger.FromContext(ctx, r.logger)

	if !VerifySignature(r.secret, rawBody, signature) {
		metrics.RecordWebhookEvent("unverified", "rejected")
		log.Warn("Webhook signature mismatch", "body_size", len(rawBody))
		return "", shared.ErrSignatureInvalid{}
	}

	event, err := ParseEvent(rawBody, eventIDHeader)
	if err != nil {
		metrics.RecordWebhookEvent("unparsed", "rejected")
		return "", err
	}
	log = log.With("event_id", event.ID, "event", event.Type)

	var outcome Outcome
	err = r.txManager.ExecuteTx(ctx, func(tx pgx.Tx) error {
		outcome = ""
		eventsTx := r.events.WithTx(tx)

		recorded, err := eventsTx.Record(ctx, &payment.ProcessedEvent{
			EventID:    event.ID,
			EventType:  event.Type,
			ReceivedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !recorded {
			outcome = OutcomeDuplicate
			return nil
		}

		result := payment.OutcomeIgnored
		if h, ok := r.registry.Lookup(event.Type); ok {
			result, err = h.Handle(ctx, tx, event)
			var missing ErrMissingEntity
			switch {
			case errors.As(err, &missing):
				log.Warn("Webhook event has no usable entity, rejecting", "entity", missing.Kind)
				result = payment.OutcomeRejected
			case err != nil:
				return err
			}
		} else {
			log.Info("No handler for webhook event, ignoring")
		}

		if err := eventsTx.SetOutcome(ctx, event.ID, result); err != nil {
			return err
		}
		outcome = Outcome(result)
		return nil
	})
	metricType := event.Type
	if _, ok := r.registry.Lookup(event.Type); !ok {
		metricType = "unhandled"
	}
	if err != nil {
		metrics.RecordWebhookEvent(metricType, "error")
		log.Error("Webhook processing failed", "error", err)
		return "", err
	}

	metrics.RecordWebhookEvent(metricType, string(outcome))
	log.Info("Webhook processed", "outcome", outcome)
	return outcome, nil
}

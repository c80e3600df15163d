package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pawsitter-settlement/internal/domain/booking"
	"github.com/pawsitter-settlement/internal/domain/payment"
	"github.com/pawsitter-settlement/internal/logger"
)

// ErrMissingEntity indicates a signed event without a usable entity for its type
type ErrMissingEntity struct {
	Kind string
}

func (e ErrMissingEntity) Error() string {
	return "webhook payload has no usable " + e.Kind + " entity"
}

// EarningReverser takes back a sitter earning when the booking's money is lost
type EarningReverser interface {
	ReverseEarning(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, reason string) (bool, error)
}

// Handlers keeps payments, refunds and disputes in step with the gateway.
// Every handler checks the current state first and reports a no-op when the event changes nothing.
type Handlers struct {
	bookings booking.Repository
	payments payment.Repository
	reverser EarningReverser
	currency string
	logger   *slog.Logger
}

func NewHandlers(logger *slog.Logger, bookings booking.Repository, payments payment.Repository, reverser EarningReverser, currency string) *Handlers {
	return &Handlers{
		bookings: bookings,
		payments: payments,
		reverser: reverser,
		currency: currency,
		logger:   logger,
	}
}

// RegisterAll wires every supported event type
func (h *Handlers) RegisterAll(r *Registry) {
	r.Register(EventPaymentAuthorized, HandlerFunc(h.PaymentAuthorized))
	r.Register(EventPaymentCaptured, HandlerFunc(h.PaymentCaptured))
	r.Register(EventPaymentFailed, HandlerFunc(h.PaymentFailed))
	r.Register(EventRefundCreated, HandlerFunc(h.RefundCreated))
	r.Register(EventRefundProcessed, HandlerFunc(h.RefundProcessed))
	r.Register(EventRefundFailed, HandlerFunc(h.RefundFailed))
	r.Register(EventDisputeCreated, HandlerFunc(h.DisputeCreated))
	r.Register(EventDisputeWon, HandlerFunc(h.DisputeWon))
	r.Register(EventDisputeLost, HandlerFunc(h.DisputeLost))
}

func (h *Handlers) PaymentAuthorized(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	return h.transitionPayment(ctx, tx, event, payment.StatusAuthorized, "")
}

func (h *Handlers) PaymentCaptured(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	return h.transitionPayment(ctx, tx, event, payment.StatusCaptured, booking.PaymentStatusPaid)
}

func (h *Handlers) PaymentFailed(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	return h.transitionPayment(ctx, tx, event, payment.StatusFailed, booking.PaymentStatusFailed)
}

// transitionPayment moves the payment forward and mirrors the result on the booking.
// A payment we have not seen yet is created from the booking reference in its notes.
func (h *Handlers) transitionPayment(
	ctx context.Context,
	tx pgx.Tx,
	event *Event,
	next payment.Status,
	bookingStatus booking.PaymentStatus,
) (payment.EventOutcome, error) {
	if event.Payload.Payment == nil || event.Payload.Payment.Entity.ID == "" {
		return "", ErrMissingEntity{Kind: "payment"}
	}
	entity := event.Payload.Payment.Entity
	log := logger.FromContext(ctx, h.logger).With("gateway_payment_id", entity.ID, "event", event.Type)
	paymentsTx := h.payments.WithTx(tx)

	p, err := paymentsTx.GetPaymentByGatewayID(ctx, entity.ID)
	switch {
	case errors.Is(err, payment.ErrPaymentNotFound{}):
		bookingID, ok := entity.BookingID()
		if !ok {
			log.Warn("Payment references no known booking, ignoring")
			return payment.OutcomeIgnored, nil
		}
		currency := entity.Currency
		if currency == "" {
			currency = h.currency
		}
		p = payment.NewPayment(bookingID, entity.ID, entity.Amount, currency)
		if err := paymentsTx.CreatePayment(ctx, p); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}

	if !p.CanTransitionTo(next) {
		log.Info("Payment already past this state", "status", p.Status)
		return payment.OutcomeNoop, nil
	}

	if err := paymentsTx.UpdatePaymentStatus(ctx, p.ID, next, entity.ErrorDescription); err != nil {
		return "", err
	}
	if bookingStatus != "" {
		if err := h.bookings.WithTx(tx).UpdatePaymentStatus(ctx, p.BookingID, bookingStatus); err != nil {
			return "", err
		}
	}

	log.Info("Payment status updated", "from", p.Status, "to", next)
	return payment.OutcomeApplied, nil
}

func (h *Handlers) RefundCreated(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	if event.Payload.Refund == nil || event.Payload.Refund.Entity.ID == "" {
		return "", ErrMissingEntity{Kind: "refund"}
	}
	entity := event.Payload.Refund.Entity
	paymentsTx := h.payments.WithTx(tx)

	r, attached, err := h.resolveRefund(ctx, paymentsTx, entity)
	if err != nil && !errors.Is(err, payment.ErrPaymentNotFound{}) {
		return "", err
	}
	if r != nil {
		if attached {
			return payment.OutcomeApplied, nil
		}
		return payment.OutcomeNoop, nil
	}

	// Refund started from the gateway dashboard: record it against the payment
	p, err := paymentsTx.GetPaymentByGatewayID(ctx, entity.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			h.logger.Warn("Refund for unknown payment, ignoring", "gateway_refund_id", entity.ID, "gateway_payment_id", entity.PaymentID)
			return payment.OutcomeIgnored, nil
		}
		return "", err
	}

	refund := payment.NewRefund(p.BookingID, p.ID, entity.Amount)
	gatewayID := entity.ID
	refund.GatewayRefundID = &gatewayID
	if err := paymentsTx.CreateRefund(ctx, refund); err != nil {
		return "", err
	}
	return payment.OutcomeApplied, nil
}

func (h *Handlers) RefundProcessed(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	if event.Payload.Refund == nil || event.Payload.Refund.Entity.ID == "" {
		return "", ErrMissingEntity{Kind: "refund"}
	}
	entity := event.Payload.Refund.Entity
	paymentsTx := h.payments.WithTx(tx)

	r, _, err := h.resolveRefund(ctx, paymentsTx, entity)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return payment.OutcomeIgnored, nil
		}
		return "", err
	}
	if r.IsTerminal() {
		return payment.OutcomeNoop, nil
	}

	if err := paymentsTx.UpdateRefundStatus(ctx, r.ID, payment.RefundStatusProcessed, ""); err != nil {
		return "", err
	}

	p, err := paymentsTx.GetPaymentByID(ctx, r.PaymentID)
	if err != nil {
		return "", fmt.Errorf("failed to load refunded payment: %w", err)
	}
	refunded, err := paymentsTx.SumProcessedRefunds(ctx, r.PaymentID)
	if err != nil {
		return "", err
	}
	if refunded >= p.Amount {
		if err := h.bookings.WithTx(tx).UpdatePaymentStatus(ctx, r.BookingID, booking.PaymentStatusRefunded); err != nil {
			return "", err
		}
	}
	return payment.OutcomeApplied, nil
}

func (h *Handlers) RefundFailed(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	if event.Payload.Refund == nil || event.Payload.Refund.Entity.ID == "" {
		return "", ErrMissingEntity{Kind: "refund"}
	}
	entity := event.Payload.Refund.Entity
	paymentsTx := h.payments.WithTx(tx)

	r, _, err := h.resolveRefund(ctx, paymentsTx, entity)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return payment.OutcomeIgnored, nil
		}
		return "", err
	}
	if r.IsTerminal() {
		return payment.OutcomeNoop, nil
	}

	reason := entity.ErrorDescription
	if reason == "" {
		reason = "refund failed at gateway"
	}
	if err := paymentsTx.UpdateRefundStatus(ctx, r.ID, payment.RefundStatusFailed, reason); err != nil {
		return "", err
	}
	return payment.OutcomeApplied, nil
}

// resolveRefund finds the refund by gateway id, or by our own id from the notes.
// The latter binds the gateway id to the refund we initiated.
func (h *Handlers) resolveRefund(ctx context.Context, paymentsTx payment.Repository, entity RefundEntity) (*payment.Refund, bool, error) {
	r, err := paymentsTx.GetRefundByGatewayID(ctx, entity.ID)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, payment.ErrPaymentNotFound{}) {
		return nil, false, err
	}

	refundID, ok := entity.RefundID()
	if !ok {
		return nil, false, err
	}
	r, err = paymentsTx.GetRefundByID(ctx, refundID)
	if err != nil {
		return nil, false, err
	}
	if r.GatewayRefundID != nil {
		return r, false, nil
	}
	if err := paymentsTx.AttachGatewayRefundID(ctx, r.ID, entity.ID); err != nil {
		return nil, false, err
	}
	gatewayID := entity.ID
	r.GatewayRefundID = &gatewayID
	return r, true, nil
}

func (h *Handlers) DisputeCreated(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	if event.Payload.Dispute == nil || event.Payload.Dispute.Entity.ID == "" {
		return "", ErrMissingEntity{Kind: "dispute"}
	}
	entity := event.Payload.Dispute.Entity
	paymentsTx := h.payments.WithTx(tx)

	_, err := paymentsTx.GetDisputeByGatewayID(ctx, entity.ID)
	if err == nil {
		return payment.OutcomeNoop, nil
	}
	if !errors.Is(err, payment.ErrPaymentNotFound{}) {
		return "", err
	}

	p, err := paymentsTx.GetPaymentByGatewayID(ctx, entity.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			h.logger.Warn("Dispute for unknown payment, ignoring", "gateway_dispute_id", entity.ID, "gateway_payment_id", entity.PaymentID)
			return payment.OutcomeIgnored, nil
		}
		return "", err
	}

	d := payment.NewDispute(p.BookingID, p.ID, entity.ID, entity.Amount, entity.ReasonCode)
	if err := paymentsTx.CreateDispute(ctx, d); err != nil {
		return "", err
	}
	if err := h.bookings.WithTx(tx).UpdatePaymentStatus(ctx, p.BookingID, booking.PaymentStatusDisputed); err != nil {
		return "", err
	}
	return payment.OutcomeApplied, nil
}

func (h *Handlers) DisputeWon(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	d, outcome, err := h.openDispute(ctx, tx, event)
	if d == nil {
		return outcome, err
	}

	if err := h.payments.WithTx(tx).UpdateDisputeStatus(ctx, d.ID, payment.DisputeStatusWon); err != nil {
		return "", err
	}
	if err := h.bookings.WithTx(tx).UpdatePaymentStatus(ctx, d.BookingID, booking.PaymentStatusPaid); err != nil {
		return "", err
	}
	return payment.OutcomeApplied, nil
}

// DisputeLost closes the dispute and takes the sitter's earning back
func (h *Handlers) DisputeLost(ctx context.Context, tx pgx.Tx, event *Event) (payment.EventOutcome, error) {
	d, outcome, err := h.openDispute(ctx, tx, event)
	if d == nil {
		return outcome, err
	}

	if err := h.payments.WithTx(tx).UpdateDisputeStatus(ctx, d.ID, payment.DisputeStatusLost); err != nil {
		return "", err
	}

	reason := "dispute lost"
	if d.Reason != "" {
		reason = "dispute lost: " + d.Reason
	}
	reversed, err := h.reverser.ReverseEarning(ctx, tx, d.BookingID, reason)
	if err != nil {
		return "", err
	}
	if !reversed {
		logger.FromContext(ctx, h.logger).Warn("Lost dispute left the sitter earning in place",
			"booking_id", d.BookingID.String(),
			"gateway_dispute_id", d.GatewayDisputeID,
		)
	}
	return payment.OutcomeApplied, nil
}

// openDispute returns the dispute when it can still be resolved, otherwise the outcome to report
func (h *Handlers) openDispute(ctx context.Context, tx pgx.Tx, event *Event) (*payment.Dispute, payment.EventOutcome, error) {
	if event.Payload.Dispute == nil || event.Payload.Dispute.Entity.ID == "" {
		return nil, "", ErrMissingEntity{Kind: "dispute"}
	}
	d, err := h.payments.WithTx(tx).GetDisputeByGatewayID(ctx, event.Payload.Dispute.Entity.ID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return nil, payment.OutcomeIgnored, nil
		}
		return nil, "", err
	}
	if d.IsResolved() {
		return nil, payment.OutcomeNoop, nil
	}
	return d, "", nil
}

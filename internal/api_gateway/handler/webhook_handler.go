package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pawsitter-settlement/internal/api_gateway/webhook"
	"github.com/pawsitter-settlement/internal/config"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookReconciler processes one signed gateway delivery
type WebhookReconciler interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signature, eventIDHeader string) (webhook.Outcome, error)
}

// WebhookHandler receives payment gateway webhooks
type WebhookHandler struct {
	reconciler      WebhookReconciler
	signatureHeader string
	eventIDHeader   string
	logger          *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, reconciler WebhookReconciler, cfg config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		reconciler:      reconciler,
		signatureHeader: cfg.SignatureHeader,
		eventIDHeader:   cfg.EventIDHeader,
		logger:          logger,
	}
}

// Receive hands the untouched body to the reconciler. Any 2xx tells the gateway to stop redelivering,
// so it is only sent once the event is committed or known.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Webhook body exceeds 1MB")
			return
		}
		RespondBadRequest(c, "Unable to read request body")
		return
	}

	outcome, err := h.reconciler.HandleWebhook(
		c.Request.Context(),
		raw,
		c.GetHeader(h.signatureHeader),
		c.GetHeader(h.eventIDHeader),
	)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, WebhookAckResponse{Outcome: string(outcome)})
}

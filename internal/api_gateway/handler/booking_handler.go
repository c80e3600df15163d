package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pawsitter-settlement/internal/api_gateway/service"
)

// BookingHandler handles HTTP requests for completing and cancelling bookings
type BookingHandler struct {
	settlementService   service.SettlementService
	cancellationService service.CancellationService
	now                 func() time.Time
	logger              *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(logger *slog.Logger, settlementService service.SettlementService, cancellationService service.CancellationService) *BookingHandler {
	return &BookingHandler{
		settlementService:   settlementService,
		cancellationService: cancellationService,
		now:                 time.Now,
		logger:              logger,
	}
}

// Complete settles a finished booking into the sitter's pending balance
func (h *BookingHandler) Complete(c *gin.Context) {
	bookingID, ok := pathUUID(c, "id", "booking ID")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.settlementService.CompleteBooking(c.Request.Context(), bookingID, caller)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapSettlementToResponse(result))
}

// RefundQuote previews what cancelling now would refund
func (h *BookingHandler) RefundQuote(c *gin.Context) {
	bookingID, ok := pathUUID(c, "id", "booking ID")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok {
		return
	}

	quote, err := h.cancellationService.QuoteRefund(c.Request.Context(), bookingID, caller, h.now().UTC())
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapQuoteToResponse(quote))
}

// Cancel cancels the booking under the active cancellation policy
func (h *BookingHandler) Cancel(c *gin.Context) {
	bookingID, ok := pathUUID(c, "id", "booking ID")
	if !ok {
		return
	}
	caller, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.cancellationService.CancelBooking(c.Request.Context(), bookingID, caller, h.now().UTC())
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapCancellationToResponse(result))
}

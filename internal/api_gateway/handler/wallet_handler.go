package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pawsitter-settlement/internal/api_gateway/service"
	"github.com/pawsitter-settlement/internal/domain/wallet"
)

// WalletHandler handles HTTP requests on a sitter's own wallet
type WalletHandler struct {
	walletService     service.WalletService
	withdrawalService service.WithdrawalService
	logger            *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService, withdrawalService service.WithdrawalService) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
		logger:            logger,
	}
}

// sitterID returns the path sitter once it is known to be the caller
func (h *WalletHandler) sitterID(c *gin.Context) (uuid.UUID, bool) {
	sitterID, ok := pathUUID(c, "id", "sitter ID")
	if !ok {
		return uuid.Nil, false
	}
	caller, ok := callerID(c)
	if !ok {
		return uuid.Nil, false
	}
	if caller != sitterID {
		RespondForbidden(c, "Wallets are only visible to their sitter")
		return uuid.Nil, false
	}
	return sitterID, true
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	sitterID, ok := h.sitterID(c)
	if !ok {
		return
	}

	w, err := h.walletService.GetWallet(c.Request.Context(), sitterID)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapWalletToResponse(w))
}

// ListTransactions returns the paginated ledger, newest first
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	sitterID, ok := h.sitterID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	transactions, total, err := h.walletService.ListTransactions(c.Request.Context(), sitterID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	items := make([]WalletTransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		items = append(items, mapTransactionToResponse(t))
	}

	RespondWithPaginatedData(c, http.StatusOK, items, pagination.Page, pagination.PerPage, int(total))
}

// ListActivity returns the journaled wallet events, newest first
func (h *WalletHandler) ListActivity(c *gin.Context) {
	sitterID, ok := h.sitterID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.walletService.ListActivity(c.Request.Context(), sitterID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	items := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, mapEntryToResponse(e))
	}

	RespondWithPaginatedData(c, http.StatusOK, items, pagination.Page, pagination.PerPage, int(total))
}

// RequestWithdrawal debits the available balance and queues a payout
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	sitterID, ok := h.sitterID(c)
	if !ok {
		return
	}

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.withdrawalService.RequestWithdrawal(
		c.Request.Context(),
		sitterID,
		req.Amount,
		wallet.PayoutMethod(req.PaymentMethod),
		req.PaymentDetails,
	)
	if err != nil {
		RespondWithDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapWithdrawalToResponse(request))
}

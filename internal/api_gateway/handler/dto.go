package handler

import (
	"time"

	"github.com/pawsitter-settlement/internal/api_gateway/service"
	"github.com/pawsitter-settlement/internal/domain/journal"
	"github.com/pawsitter-settlement/internal/domain/policy"
	"github.com/pawsitter-settlement/internal/domain/wallet"
	"github.com/pawsitter-settlement/internal/domain/withdrawal"
)

// SettlementResponse represents a completed booking's split in API responses
type SettlementResponse struct {
	BookingID      string `json:"booking_id"`
	SitterEarnings int64  `json:"sitter_earnings"`
	PlatformFee    int64  `json:"platform_fee"`
	AvailableAt    string `json:"available_at"`
	TransactionID  string `json:"transaction_id"`
}

// RuleResponse represents a cancellation rule
type RuleResponse struct {
	MinHours      int  `json:"min_hours"`
	MaxHours      *int `json:"max_hours,omitempty"`
	RefundPercent int  `json:"refund_percent"`
}

// RefundQuoteResponse represents a refund quote in API responses
type RefundQuoteResponse struct {
	RefundPercent     int           `json:"refund_percent"`
	RefundAmount      int64         `json:"refund_amount"`
	DeductionAmount   int64         `json:"deduction_amount"`
	RuleApplied       *RuleResponse `json:"rule_applied,omitempty"`
	HoursUntilService float64       `json:"hours_until_service"`
	CanRefund         bool          `json:"can_refund"`
}

// CancellationResponse represents the result of a cancellation
type CancellationResponse struct {
	BookingID string              `json:"booking_id"`
	Status    string              `json:"status"`
	Quote     RefundQuoteResponse `json:"quote"`
	RefundID  string              `json:"refund_id,omitempty"`
}

// WalletResponse represents a sitter wallet in API responses
type WalletResponse struct {
	ID            string                `json:"id"`
	SitterID      string                `json:"sitter_id"`
	Balance       int64                 `json:"balance"`
	PendingAmount int64                 `json:"pending_amount"`
	TotalEarnings int64                 `json:"total_earnings"`
	Currency      string                `json:"currency"`
	PayoutMethod  string                `json:"payout_method,omitempty"`
	PayoutDetails *wallet.PayoutDetails `json:"payout_details,omitempty"`
	UpdatedAt     string                `json:"updated_at"`
}

// WalletTransactionResponse represents a ledger entry in API responses
type WalletTransactionResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      int64           `json:"amount"`
	Status      string          `json:"status"`
	BookingID   string          `json:"booking_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Metadata    wallet.Metadata `json:"metadata,omitempty"`
	AvailableAt string          `json:"available_at,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// ActivityResponse represents a journaled wallet event in API responses
type ActivityResponse struct {
	EventID      string                 `json:"event_id"`
	EventType    string                 `json:"event_type"`
	Amount       int64                  `json:"amount"`
	BalanceAfter *int64                 `json:"balance_after,omitempty"`
	PendingAfter *int64                 `json:"pending_after,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	OccurredAt   string                 `json:"occurred_at"`
}

// CreateWithdrawalRequest represents a request to withdraw from the available balance
type CreateWithdrawalRequest struct {
	Amount         int64                `json:"amount" binding:"required"`
	PaymentMethod  string               `json:"payment_method" binding:"required"`
	PaymentDetails wallet.PayoutDetails `json:"payment_details"`
}

// WithdrawalResponse represents a withdrawal request in API responses
type WithdrawalResponse struct {
	ID            string `json:"id"`
	WalletID      string `json:"wallet_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// WebhookAckResponse acknowledges a gateway delivery
type WebhookAckResponse struct {
	Outcome string `json:"outcome"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapSettlementToResponse(r *service.SettlementResult) SettlementResponse {
	return SettlementResponse{
		BookingID:      r.BookingID.String(),
		SitterEarnings: r.SitterEarnings,
		PlatformFee:    r.PlatformFee,
		AvailableAt:    r.AvailableAt.Format(time.RFC3339),
		TransactionID:  r.TransactionID.String(),
	}
}

func mapQuoteToResponse(q *policy.Quote) RefundQuoteResponse {
	response := RefundQuoteResponse{
		RefundPercent:     q.RefundPercent,
		RefundAmount:      q.RefundAmount,
		DeductionAmount:   q.DeductionAmount,
		HoursUntilService: q.HoursUntilService,
		CanRefund:         q.CanRefund,
	}
	if q.RuleApplied != nil {
		response.RuleApplied = &RuleResponse{
			MinHours:      q.RuleApplied.MinHours,
			MaxHours:      q.RuleApplied.MaxHours,
			RefundPercent: q.RuleApplied.RefundPercent,
		}
	}
	return response
}

func mapCancellationToResponse(r *service.CancellationResult) CancellationResponse {
	response := CancellationResponse{
		BookingID: r.BookingID.String(),
		Status:    "CANCELLED",
		Quote:     mapQuoteToResponse(&r.Quote),
	}
	if r.RefundID != nil {
		response.RefundID = r.RefundID.String()
	}
	return response
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	response := WalletResponse{
		ID:            w.ID.String(),
		SitterID:      w.SitterID.String(),
		Balance:       w.Balance,
		PendingAmount: w.PendingAmount,
		TotalEarnings: w.TotalEarnings,
		Currency:      w.Currency,
		PayoutDetails: w.PayoutDetails,
		UpdatedAt:     w.UpdatedAt.Format(time.RFC3339),
	}
	if w.PayoutMethod != nil {
		response.PayoutMethod = string(*w.PayoutMethod)
	}
	return response
}

func mapTransactionToResponse(t *wallet.Transaction) WalletTransactionResponse {
	response := WalletTransactionResponse{
		ID:          t.ID.String(),
		Type:        string(t.Type),
		Amount:      t.Amount,
		Status:      string(t.Status),
		Description: t.Description,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.BookingID != nil {
		response.BookingID = t.BookingID.String()
	}
	if t.AvailableAt != nil {
		response.AvailableAt = t.AvailableAt.Format(time.RFC3339)
	}
	return response
}

func mapEntryToResponse(e *journal.Entry) ActivityResponse {
	return ActivityResponse{
		EventID:      e.EventID.String(),
		EventType:    string(e.EventType),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		PendingAfter: e.PendingAfter,
		Attributes:   e.Attributes,
		OccurredAt:   e.OccurredAt.Format(time.RFC3339),
	}
}

func mapWithdrawalToResponse(r *withdrawal.Request) WithdrawalResponse {
	return WithdrawalResponse{
		ID:            r.ID.String(),
		WalletID:      r.WalletID.String(),
		Amount:        r.Amount,
		PaymentMethod: string(r.PaymentMethod),
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}

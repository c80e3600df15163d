package policy

import (
	"time"
)

// Quote is the outcome of applying a policy to a cancellation
type Quote struct {
	RefundPercent     int     `json:"refund_percent"`
	RefundAmount      int64   `json:"refund_amount"`
	DeductionAmount   int64   `json:"deduction_amount"`
	RuleApplied       *Rule   `json:"rule_applied,omitempty"`
	HoursUntilService float64 `json:"hours_until_service"`
	CanRefund         bool    `json:"can_refund"`
}

// ComputeRefund applies the policy to a cancellation of a booking worth amount.
//
// Time left is clamped at zero once the service has started. Arithmetic is integer only,
// so identical inputs always give identical quotes and RefundAmount+DeductionAmount == amount.
// A refund is only possible for a paid booking with a non-zero refund.
func ComputeRefund(amount int64, serviceAt, now time.Time, p *Policy, paid bool) (Quote, error) {
	if amount < 0 {
		return Quote{}, ErrInvalidAmount
	}
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}

	until := serviceAt.Sub(now)
	if until < 0 {
		until = 0
	}

	quote := Quote{HoursUntilService: until.Hours()}
	if rule, ok := p.Match(until); ok {
		quote.RefundPercent = rule.RefundPercent
		quote.RuleApplied = rule
	}

	quote.RefundAmount = amount * int64(quote.RefundPercent) / 100
	if quote.RefundAmount < 0 {
		quote.RefundAmount = 0
	}
	quote.DeductionAmount = amount - quote.RefundAmount
	quote.CanRefund = paid && quote.RefundAmount > 0

	return quote, nil
}

// Package shared holds the error taxonomy and identifiers used across the settlement domain.
package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrValidation indicates missing or malformed input, or a violated business rule
type ErrValidation struct {
	Field   string
	Message string
}

func (e ErrValidation) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is matches any ErrValidation
func (e ErrValidation) Is(target error) bool {
	_, ok := target.(ErrValidation)
	return ok
}

// ErrNotFound indicates a missing booking, wallet, payment or similar resource
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is matches on resource when the target names one, otherwise any ErrNotFound
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	if t.Resource == "" {
		return true
	}
	return e.Resource == t.Resource && (t.ID == "" || e.ID == t.ID)
}

// ErrForbidden indicates the caller does not own the resource
type ErrForbidden struct {
	Resource string
	ID       string
}

func (e ErrForbidden) Error() string {
	return fmt.Sprintf("caller does not own %s %s", e.Resource, e.ID)
}

func (e ErrForbidden) Is(target error) bool {
	_, ok := target.(ErrForbidden)
	return ok
}

// ErrAlreadyCompleted indicates a repeated completion attempt on a booking
type ErrAlreadyCompleted struct {
	BookingID uuid.UUID
}

func (e ErrAlreadyCompleted) Error() string {
	return "booking already completed: " + e.BookingID.String()
}

func (e ErrAlreadyCompleted) Is(target error) bool {
	t, ok := target.(ErrAlreadyCompleted)
	if !ok {
		return false
	}
	if t.BookingID == uuid.Nil {
		return true
	}
	return e.BookingID == t.BookingID
}

// ErrInsufficientBalance indicates a debit larger than the available balance.
// Balance carries the current available balance for user feedback.
type ErrInsufficientBalance struct {
	Balance   int64
	Requested int64
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, available balance is %d", e.Requested, e.Balance)
}

func (e ErrInsufficientBalance) Is(target error) bool {
	_, ok := target.(ErrInsufficientBalance)
	return ok
}

// ErrSignatureInvalid indicates a webhook whose signature does not match its raw body
type ErrSignatureInvalid struct{}

func (e ErrSignatureInvalid) Error() string {
	return "webhook signature is invalid"
}

// ErrConflict indicates a unit of work that kept losing lock races until retries ran out
type ErrConflict struct {
	Resource string
	Attempts int
	Err      error
}

func (e ErrConflict) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("concurrent modification of %s, gave up after %d attempts", e.Resource, e.Attempts)
	}
	return fmt.Sprintf("concurrent modification of %s, gave up after %d attempts: %v", e.Resource, e.Attempts, e.Err)
}

func (e ErrConflict) Unwrap() error {
	return e.Err
}

func (e ErrConflict) Is(target error) bool {
	_, ok := target.(ErrConflict)
	return ok
}

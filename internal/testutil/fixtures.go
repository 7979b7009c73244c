package testutil

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/checkout"
)

// NewTestAttempt builds a pending attempt with a fresh idempotency key.
func NewTestAttempt(checkoutID string, amount string, brandType int) *checkout.Attempt {
	a, err := checkout.NewAttempt(uuid.New().String(), checkoutID, decimal.RequireFromString(amount), brandType)
	if err != nil {
		panic(err)
	}
	return a
}

// NewCompletedAttempt builds an attempt resolved as completed with the
// given gateway result code.
func NewCompletedAttempt(checkoutID string, amount string, brandType int, code string) *checkout.Attempt {
	a := NewTestAttempt(checkoutID, amount, brandType)
	if err := a.MarkAuthorizing(); err != nil {
		panic(err)
	}
	if err := a.MarkCompleted(&code); err != nil {
		panic(err)
	}
	return a
}

func StringPtr(s string) *string {
	return &s
}

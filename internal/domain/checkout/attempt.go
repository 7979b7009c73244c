package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/errors"
)

// AttemptStatus represents the attempt status in the state machine
type AttemptStatus string

const (
	StatusPending     AttemptStatus = "pending"     // checkout id issued, sheet outcome not yet known
	StatusAuthorizing AttemptStatus = "authorizing" // credential received, gateway submission in flight
	StatusCompleted   AttemptStatus = "completed"
	StatusFailed      AttemptStatus = "failed"
	StatusCancelled   AttemptStatus = "cancelled" // sheet dismissed before a result was produced
)

// Network is a card network accepted by the payment sheet.
type Network string

const (
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
	NetworkMada       Network = "mada"
)

// Session is the backend-issued checkout session for one attempt. It is held
// in memory for the duration of the attempt and discarded once it resolves.
type Session struct {
	CheckoutID string
	Amount     decimal.Decimal
	BrandType  int

	// RawDetails is the full backend payload, retained for display only.
	// Reconciliation logic never interprets it.
	RawDetails map[string]any
}

// Attempt is the persisted record of one checkout attempt.
type Attempt struct {
	ID             uuid.UUID
	IdempotencyKey string
	CheckoutID     string
	Amount         decimal.Decimal
	BrandType      int
	Status         AttemptStatus
	FailureReason  *string
	UserCancelled  bool
	GatewayCode    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

// NewAttempt creates a new pending attempt for an issued checkout id.
func NewAttempt(idempotencyKey, checkoutID string, amount decimal.Decimal, brandType int) (*Attempt, error) {
	if idempotencyKey == "" {
		return nil, errors.ErrInvalidInput
	}
	if checkoutID == "" {
		return nil, errors.ErrMissingCheckoutID
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}

	now := time.Now()
	return &Attempt{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		CheckoutID:     checkoutID,
		Amount:         amount,
		BrandType:      brandType,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanTransitionTo checks if the attempt can transition to the given status.
// completed and failed may flip into each other: the status reconciler is
// authoritative and can override the immediate authorization outcome.
func (a *Attempt) CanTransitionTo(newStatus AttemptStatus) bool {
	transitions := map[AttemptStatus][]AttemptStatus{
		StatusPending: {
			StatusAuthorizing,
			StatusCompleted, // verification of a redirect flow can resolve directly
			StatusFailed,
			StatusCancelled,
		},
		StatusAuthorizing: {
			StatusCompleted,
			StatusFailed,
			StatusCancelled, // sheet dismissed while the submission is in flight
		},
		StatusCompleted: {
			StatusFailed, // reconciler downgrade
		},
		StatusFailed: {
			StatusCompleted, // reconciler upgrade
		},
		StatusCancelled: {}, // terminal
	}

	allowed, exists := transitions[a.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the attempt to a new status.
func (a *Attempt) TransitionTo(newStatus AttemptStatus) error {
	if !a.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(a.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	a.Status = newStatus
	a.UpdatedAt = time.Now()

	if newStatus == StatusCompleted || newStatus == StatusFailed || newStatus == StatusCancelled {
		now := time.Now()
		a.ResolvedAt = &now
	}
	return nil
}

// MarkAuthorizing records that the credential was received and the gateway
// submission is in flight.
func (a *Attempt) MarkAuthorizing() error {
	return a.TransitionTo(StatusAuthorizing)
}

// MarkCompleted resolves the attempt as successful.
func (a *Attempt) MarkCompleted(gatewayCode *string) error {
	if err := a.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	if gatewayCode != nil {
		a.GatewayCode = gatewayCode
	}
	a.FailureReason = nil
	return nil
}

// MarkFailed resolves the attempt with a failure reason.
func (a *Attempt) MarkFailed(reason string) error {
	if err := a.TransitionTo(StatusFailed); err != nil {
		return err
	}
	a.FailureReason = &reason
	return nil
}

// MarkCancelled resolves the attempt as dismissed by the user.
func (a *Attempt) MarkCancelled(reason string) error {
	if err := a.TransitionTo(StatusCancelled); err != nil {
		return err
	}
	a.FailureReason = &reason
	a.UserCancelled = true
	return nil
}

// ApplyVerification overlays a reconciled status-check result onto the
// attempt. A no-op when the reconciled state matches the current one.
func (a *Attempt) ApplyVerification(res *StatusResult) error {
	if res.GatewayCode != "" {
		code := res.GatewayCode
		a.GatewayCode = &code
	}

	switch {
	case res.CombinedSuccess && a.Status != StatusCompleted:
		return a.MarkCompleted(nil)
	case !res.CombinedSuccess && a.Status != StatusFailed && a.Status != StatusCancelled:
		return a.MarkFailed(res.FailureReason)
	default:
		a.UpdatedAt = time.Now()
		return nil
	}
}

// IsResolved checks if the attempt has reached a terminal-for-the-sheet state.
func (a *Attempt) IsResolved() bool {
	return a.Status == StatusCompleted ||
		a.Status == StatusFailed ||
		a.Status == StatusCancelled
}

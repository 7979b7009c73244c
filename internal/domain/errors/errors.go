package errors

import (
	"errors"
	"fmt"
)

var (
	// Checkout request errors
	ErrMissingAuthToken  = errors.New("auth token is required")
	ErrInvalidBaseURL    = errors.New("invalid backend URL")
	ErrNoData            = errors.New("no data received from backend")
	ErrDecodeFailed      = errors.New("failed to decode backend response")
	ErrBackendRejected   = errors.New("backend rejected the request")
	ErrMissingCheckoutID = errors.New("backend returned success without a checkout id")

	// Authorization sheet errors
	ErrSheetUnsupported = errors.New("device cannot pay with the required networks")
	ErrSheetFailed      = errors.New("failed to present payment sheet")
	ErrUserCancelled    = errors.New("payment sheet dismissed before completion")
	ErrFlowResolved     = errors.New("checkout attempt already resolved")
	ErrFlowNotFound     = errors.New("no active flow for checkout id")

	// Gateway errors
	ErrInvalidPaymentParams = errors.New("invalid payment parameters")
	ErrGatewayRejected      = errors.New("gateway rejected the transaction")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")

	// Attempt errors
	ErrAttemptNotFound        = errors.New("checkout attempt not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateAttempt       = errors.New("duplicate checkout attempt")

	// Validation errors
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidInput  = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

package gateway

import (
	"context"
	"encoding/json"
	"sync"

	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

// Result carries the gateway's answer for one submission attempt. Code and
// Description are absent on hard submission failures.
type Result struct {
	Code        *string
	Description *string
}

// PaymentParams is the parameter object the gateway expects for one
// transaction: the checkout id, the opaque payment credential, and the
// deployment's result-redirect identifier.
type PaymentParams struct {
	CheckoutID       string
	TokenData        json.RawMessage
	ShopperResultURL string
}

// NewApplePayParams marshals an authorization credential into gateway
// parameters. A malformed credential fails fast, before any network call.
func NewApplePayParams(checkoutID string, tokenData []byte, shopperResultURL string) (PaymentParams, error) {
	if checkoutID == "" {
		return PaymentParams{}, derrors.NewDomainError(
			"invalid_payment_params", "checkout id is required", derrors.ErrInvalidPaymentParams)
	}
	if len(tokenData) == 0 || !json.Valid(tokenData) {
		return PaymentParams{}, derrors.NewDomainError(
			"invalid_payment_params", "payment credential is not valid token data", derrors.ErrInvalidPaymentParams)
	}
	return PaymentParams{
		CheckoutID:       checkoutID,
		TokenData:        json.RawMessage(tokenData),
		ShopperResultURL: shopperResultURL,
	}, nil
}

// Transaction is one gateway submission.
type Transaction struct {
	Params PaymentParams
}

// Submitter is the opaque gateway SDK boundary.
type Submitter interface {
	// Name returns the submitter name.
	Name() string
	// Submit sends one transaction and returns its result, or an error when
	// the submission itself failed.
	Submit(ctx context.Context, tx Transaction) (*Result, error)
}

// SubmitFunc is the raw callback-style SDK entry point. The SDK may invoke
// the callback from any goroutine and, under some failure modes, more than
// once.
type SubmitFunc func(tx Transaction, done func(*Result, error))

// CallbackSubmitter adapts a callback-style SDK into a Submitter that
// delivers exactly one result on the caller's goroutine. Duplicate and late
// callbacks are dropped.
type CallbackSubmitter struct {
	name string
	fn   SubmitFunc
}

// NewCallbackSubmitter wraps a raw SDK submit function.
func NewCallbackSubmitter(name string, fn SubmitFunc) *CallbackSubmitter {
	return &CallbackSubmitter{name: name, fn: fn}
}

func (s *CallbackSubmitter) Name() string { return s.name }

func (s *CallbackSubmitter) Submit(ctx context.Context, tx Transaction) (*Result, error) {
	type answer struct {
		res *Result
		err error
	}

	ch := make(chan answer, 1)
	var once sync.Once
	s.fn(tx, func(res *Result, err error) {
		once.Do(func() { ch <- answer{res: res, err: err} })
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			// Submission failure surfaced verbatim.
			return nil, derrors.NewDomainError("gateway_error", a.err.Error(), derrors.ErrGatewayRejected)
		}
		return a.res, nil
	}
}

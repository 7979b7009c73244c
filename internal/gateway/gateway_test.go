package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

const testRedirectURL = "sa.com.wishy.payments://payment"

func TestNewApplePayParams_Valid(t *testing.T) {
	params, err := NewApplePayParams("CO123", []byte(`{"data":"opaque"}`), testRedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "CO123", params.CheckoutID)
	assert.Equal(t, testRedirectURL, params.ShopperResultURL)
	assert.JSONEq(t, `{"data":"opaque"}`, string(params.TokenData))
}

func TestNewApplePayParams_EmptyCheckoutID(t *testing.T) {
	_, err := NewApplePayParams("", []byte(`{}`), testRedirectURL)
	assert.ErrorIs(t, err, derrors.ErrInvalidPaymentParams)
}

func TestNewApplePayParams_MalformedCredential(t *testing.T) {
	_, err := NewApplePayParams("CO123", nil, testRedirectURL)
	assert.ErrorIs(t, err, derrors.ErrInvalidPaymentParams)

	_, err = NewApplePayParams("CO123", []byte("not json"), testRedirectURL)
	assert.ErrorIs(t, err, derrors.ErrInvalidPaymentParams)
}

func TestCallbackSubmitter_Success(t *testing.T) {
	code := "000.000.000"
	s := NewCallbackSubmitter("sdk", func(tx Transaction, done func(*Result, error)) {
		go done(&Result{Code: &code}, nil)
	})

	res, err := s.Submit(context.Background(), Transaction{})
	require.NoError(t, err)
	require.NotNil(t, res.Code)
	assert.Equal(t, "000.000.000", *res.Code)
}

func TestCallbackSubmitter_ErrorSurfacedVerbatim(t *testing.T) {
	s := NewCallbackSubmitter("sdk", func(tx Transaction, done func(*Result, error)) {
		go done(nil, errors.New("connection reset by gateway"))
	})

	_, err := s.Submit(context.Background(), Transaction{})
	require.ErrorIs(t, err, derrors.ErrGatewayRejected)

	var derr *derrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "connection reset by gateway", derr.Message)
}

func TestCallbackSubmitter_DuplicateCallbacksDropped(t *testing.T) {
	code := "000.000.000"
	s := NewCallbackSubmitter("sdk", func(tx Transaction, done func(*Result, error)) {
		// Some SDK failure modes fire the delegate twice.
		done(&Result{Code: &code}, nil)
		done(nil, errors.New("late duplicate"))
	})

	res, err := s.Submit(context.Background(), Transaction{})
	require.NoError(t, err)
	assert.Equal(t, "000.000.000", *res.Code)
}

func TestCallbackSubmitter_ContextCancelled(t *testing.T) {
	s := NewCallbackSubmitter("sdk", func(tx Transaction, done func(*Result, error)) {
		// Callback never fires.
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Submit(ctx, Transaction{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockSubmitter_DefaultSuccess(t *testing.T) {
	s := NewMockSubmitter("test", WithLatency(time.Millisecond))
	res, err := s.Submit(context.Background(), Transaction{})
	require.NoError(t, err)
	assert.Equal(t, "000.000.000", *res.Code)
}

func TestMockSubmitter_AlwaysFails(t *testing.T) {
	s := NewMockSubmitter("test", WithLatency(time.Millisecond), WithFailureRate(1.0))
	_, err := s.Submit(context.Background(), Transaction{})
	assert.ErrorIs(t, err, derrors.ErrGatewayRejected)
}

func TestRegistry_GetAndBreaker(t *testing.T) {
	mock := NewMockSubmitter("hyperpay", WithLatency(time.Millisecond))
	r := NewRegistry(mock)

	s, breaker, err := r.Get("hyperpay")
	require.NoError(t, err)
	require.NotNil(t, breaker)

	res, err := breaker.Execute(func() (*Result, error) {
		return s.Submit(context.Background(), Transaction{})
	})
	require.NoError(t, err)
	assert.Equal(t, "000.000.000", *res.Code)
}

func TestRegistry_UnknownSubmitter(t *testing.T) {
	r := NewRegistry(NewMockSubmitter("hyperpay"))
	_, _, err := r.Get("unknown")
	assert.Error(t, err)
}

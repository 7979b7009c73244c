package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

// MockSubmitter simulates a gateway for local runs and tests.
type MockSubmitter struct {
	name        string
	resultCode  string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
}

type MockSubmitterOption func(*MockSubmitter)

func WithResultCode(code string) MockSubmitterOption {
	return func(s *MockSubmitter) { s.resultCode = code }
}

func WithFailureRate(rate float64) MockSubmitterOption {
	return func(s *MockSubmitter) { s.failureRate = rate }
}

func WithLatency(d time.Duration) MockSubmitterOption {
	return func(s *MockSubmitter) { s.latency = d }
}

func NewMockSubmitter(name string, opts ...MockSubmitterOption) *MockSubmitter {
	s := &MockSubmitter{
		name:       name,
		resultCode: "000.000.000",
		latency:    50 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MockSubmitter) Name() string { return s.name }

func (s *MockSubmitter) Submit(ctx context.Context, tx Transaction) (*Result, error) {
	// Simulate latency
	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < s.failureRate {
		return nil, derrors.NewDomainError(
			"gateway_error",
			fmt.Sprintf("%s: simulated submission failure for checkout %s", s.name, tx.Params.CheckoutID),
			derrors.ErrGatewayRejected,
		)
	}

	code := s.resultCode
	desc := "Transaction succeeded"
	return &Result{Code: &code, Description: &desc}, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/authorizer"
	"github.com/wishyapp/payments/internal/domain/checkout"
	domainErrors "github.com/wishyapp/payments/internal/domain/errors"
	"github.com/wishyapp/payments/internal/gateway"
	"github.com/wishyapp/payments/internal/hyperpay"
	"github.com/wishyapp/payments/pkg/saga"
)

// BackendClient talks to the storefront backend that brokers checkout
// sessions and payment status.
type BackendClient interface {
	RequestCheckout(ctx context.Context, amount decimal.Decimal, brandType int, authToken string) (*checkout.Session, error)
	CheckStatus(ctx context.Context, checkoutID string, brandType int, authToken string) (*checkout.StatusResult, error)
}

// EventPublisher enqueues a resolved attempt for background verification.
type EventPublisher interface {
	PublishVerificationEvent(ctx context.Context, checkoutID string, brandType int, data map[string]any) error
}

// CheckoutService orchestrates the checkout lifecycle from session request
// through gateway submission to status verification.
type CheckoutService struct {
	attempts      checkout.Repository
	backend       BackendClient
	flows         *authorizer.Manager
	gateways      *gateway.Registry
	submitterName string
	sheet         authorizer.Config
	txManager     TransactionManager
	publisher     EventPublisher
	logger        zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	attempts checkout.Repository,
	backend BackendClient,
	flows *authorizer.Manager,
	gateways *gateway.Registry,
	submitterName string,
	sheet authorizer.Config,
	txManager TransactionManager,
	publisher EventPublisher,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		attempts:      attempts,
		backend:       backend,
		flows:         flows,
		gateways:      gateways,
		submitterName: submitterName,
		sheet:         sheet,
		txManager:     txManager,
		publisher:     publisher,
		logger:        logger,
	}
}

// BeginCheckoutRequest holds the input for starting a checkout attempt.
type BeginCheckoutRequest struct {
	IdempotencyKey string
	AuthToken      string
	Amount         decimal.Decimal
	BrandType      int
	DeviceNetworks []checkout.Network
}

// BeginCheckoutResponse holds the created attempt plus the payment request
// the device should present.
type BeginCheckoutResponse struct {
	Attempt        *checkout.Attempt
	Session        *checkout.Session
	PaymentRequest authorizer.Request
	Replayed       bool
}

// Begin requests a checkout session from the backend, persists a pending
// attempt, and hands back the assembled payment request. The capability
// check runs before any network call so an unsupported device fails
// without touching the backend.
func (s *CheckoutService) Begin(ctx context.Context, req BeginCheckoutRequest) (*BeginCheckoutResponse, error) {
	// 1. Check idempotency
	existing, err := s.attempts.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil && existing != nil {
		return &BeginCheckoutResponse{
			Attempt:        existing,
			PaymentRequest: s.sheet.BuildRequest(existing.Amount),
			Replayed:       true,
		}, nil
	}

	// 2. Device capability gate
	if err := s.sheet.CheckCapability(req.DeviceNetworks); err != nil {
		return nil, err
	}

	// 3. Session request, attempt persistence, and flow registration run as
	// a saga: a failed flow registration rolls the stored attempt back to
	// cancelled instead of stranding it pending forever.
	var (
		session *checkout.Session
		attempt *checkout.Attempt
	)
	sg := saga.New("begin_checkout").
		AddStep(saga.Step{
			Name: "request_session",
			Execute: func(ctx context.Context) error {
				var err error
				session, err = s.backend.RequestCheckout(ctx, req.Amount, req.BrandType, req.AuthToken)
				return err
			},
		}).
		AddStep(saga.Step{
			Name: "persist_attempt",
			Execute: func(ctx context.Context) error {
				var err error
				attempt, err = checkout.NewAttempt(req.IdempotencyKey, session.CheckoutID, req.Amount, req.BrandType)
				if err != nil {
					return err
				}
				return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
					return s.attempts.Create(txCtx, attempt)
				})
			},
			Compensate: func(ctx context.Context) error {
				if err := attempt.MarkCancelled("checkout setup failed"); err != nil {
					return err
				}
				return s.attempts.Update(ctx, attempt)
			},
		}).
		AddStep(saga.Step{
			Name: "register_flow",
			Execute: func(ctx context.Context) error {
				_, err := s.flows.Register(session.CheckoutID)
				return err
			},
		})
	if _, err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	return &BeginCheckoutResponse{
		Attempt:        attempt,
		Session:        session,
		PaymentRequest: s.sheet.BuildRequest(req.Amount),
	}, nil
}

// AuthorizeRequest is the device-reported authorization event.
type AuthorizeRequest struct {
	CheckoutID string
	TokenData  json.RawMessage
	AuthToken  string
}

// HandleAuthorized submits the device credential to the payment gateway
// and resolves the flow with exactly one outcome. A flow that already
// resolved (the sheet was dismissed first, or a duplicate event raced in)
// returns the latched outcome without a second gateway call.
func (s *CheckoutService) HandleAuthorized(ctx context.Context, req AuthorizeRequest) (*checkout.Outcome, error) {
	flow, err := s.flows.Get(req.CheckoutID)
	if err != nil {
		return nil, err
	}

	if err := flow.BeginAuthorization(); err != nil {
		if out := flow.Outcome(); out != nil {
			return out, nil
		}
		return nil, err
	}

	attempt, err := s.attempts.GetByCheckoutID(ctx, req.CheckoutID)
	if err != nil {
		return nil, err
	}
	if err := attempt.MarkAuthorizing(); err != nil {
		return nil, err
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, err
	}

	// Malformed credentials fail fast before any gateway submission.
	params, err := gateway.NewApplePayParams(req.CheckoutID, req.TokenData, s.sheet.ShopperResultURL)
	if err != nil {
		return s.resolveFailure(ctx, flow, attempt, req.AuthToken, "invalid payment credential", nil)
	}

	submitter, breaker, err := s.gateways.Get(s.submitterName)
	if err != nil {
		return s.resolveFailure(ctx, flow, attempt, req.AuthToken, "payment gateway unavailable", nil)
	}

	result, err := breaker.Execute(func() (*gateway.Result, error) {
		return submitter.Submit(ctx, gateway.Transaction{Params: params})
	})
	if err != nil {
		reason := failureMessage(err)
		return s.resolveFailure(ctx, flow, attempt, req.AuthToken, reason, nil)
	}

	code := ""
	if result.Code != nil {
		code = *result.Code
	}
	if !hyperpay.IsSuccessCode(code) {
		reason := "payment failed"
		if result.Description != nil && *result.Description != "" {
			reason = *result.Description
		}
		return s.resolveFailure(ctx, flow, attempt, req.AuthToken, reason, &code)
	}

	outcome := checkout.SuccessOutcome(req.CheckoutID)
	if !flow.Resolve(outcome) {
		return flow.Outcome(), nil
	}
	if err := attempt.MarkCompleted(&code); err != nil {
		return nil, err
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, err
	}
	s.enqueueVerification(ctx, attempt, req.AuthToken)

	return &outcome, nil
}

// HandleDismissed processes the sheet-dismissed event. It is the final
// event of a flow, so the flow is removed either way. A dismissal after
// the flow resolved is the trailing delegate callback and only echoes the
// latched outcome.
func (s *CheckoutService) HandleDismissed(ctx context.Context, checkoutID string) (*checkout.Outcome, error) {
	flow, err := s.flows.Get(checkoutID)
	if err != nil {
		return nil, err
	}

	out, won := flow.Dismiss()
	s.flows.Remove(checkoutID)
	if !won {
		return flow.Outcome(), nil
	}

	attempt, err := s.attempts.GetByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if err := attempt.MarkCancelled(out.FailureReason); err != nil {
		return nil, err
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, err
	}

	return out, nil
}

// Verify asks the backend for the authoritative payment status and
// reconciles the stored attempt with it. Called by the verification worker
// and exposed directly for on-demand checks.
func (s *CheckoutService) Verify(ctx context.Context, checkoutID string, authToken string) (*checkout.StatusResult, error) {
	attempt, err := s.attempts.GetByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.CheckStatus(ctx, checkoutID, attempt.BrandType, authToken)
	if err != nil {
		return nil, err
	}

	if err := attempt.ApplyVerification(result); err != nil {
		return nil, err
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, err
	}

	return result, nil
}

// GetAttempt returns the attempt for a checkout id.
func (s *CheckoutService) GetAttempt(ctx context.Context, checkoutID string) (*checkout.Attempt, error) {
	return s.attempts.GetByCheckoutID(ctx, checkoutID)
}

// ListAttempts returns attempts matching the filter.
func (s *CheckoutService) ListAttempts(ctx context.Context, filter checkout.ListFilter) ([]*checkout.Attempt, error) {
	return s.attempts.List(ctx, filter)
}

// resolveFailure latches a failure outcome and persists it. If another
// event already resolved the flow, the latched outcome is returned and the
// attempt is left untouched.
func (s *CheckoutService) resolveFailure(ctx context.Context, flow *authorizer.Flow, attempt *checkout.Attempt, authToken, reason string, gatewayCode *string) (*checkout.Outcome, error) {
	outcome := checkout.FailureOutcome(attempt.CheckoutID, reason, false)
	if !flow.Resolve(outcome) {
		return flow.Outcome(), nil
	}

	attempt.GatewayCode = gatewayCode
	if err := attempt.MarkFailed(reason); err != nil {
		return nil, err
	}
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, err
	}
	s.enqueueVerification(ctx, attempt, authToken)

	return &outcome, nil
}

// enqueueVerification publishes the resolved attempt for background
// reconciliation. The shopper token rides along so the worker can query
// the backend on the shopper's behalf. A publish failure is logged, not
// returned, so the device still receives its outcome; the status endpoint
// remains available for an on-demand check.
func (s *CheckoutService) enqueueVerification(ctx context.Context, attempt *checkout.Attempt, authToken string) {
	data := map[string]any{
		"status":     string(attempt.Status),
		"amount":     attempt.Amount.StringFixed(2),
		"auth_token": authToken,
	}
	if attempt.GatewayCode != nil {
		data["gateway_code"] = *attempt.GatewayCode
	}
	if err := s.publisher.PublishVerificationEvent(ctx, attempt.CheckoutID, attempt.BrandType, data); err != nil {
		s.logger.Error().Err(err).
			Str("checkout_id", attempt.CheckoutID).
			Msg("failed to enqueue verification event")
	}
}

// failureMessage extracts a presentable reason from a gateway error.
func failureMessage(err error) string {
	var derr *domainErrors.DomainError
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return "payment failed"
}

package controller

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/authorizer"
	"github.com/wishyapp/payments/internal/domain/checkout"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (validation tags, raw credential
// payloads). Controllers convert these to service layer DTOs before
// calling business logic.

// BeginCheckoutRequest holds the input for starting a checkout attempt.
type BeginCheckoutRequest struct {
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	BrandType         int             `json:"brand_type" validate:"gte=0"`
	SupportedNetworks []string        `json:"supported_networks" validate:"required,min=1,dive,required"`
}

// AuthorizedRequest carries the payment credential the device obtained
// from the sheet. The token data is opaque and passed to the gateway as-is.
type AuthorizedRequest struct {
	TokenData json.RawMessage `json:"token_data" validate:"required"`
}

// --- Response DTOs ---

// PaymentRequestResponse is the assembled payment request the device presents.
type PaymentRequestResponse struct {
	MerchantID        string            `json:"merchant_id"`
	SupportedNetworks []string          `json:"supported_networks"`
	CountryCode       string            `json:"country_code"`
	CurrencyCode      string            `json:"currency_code"`
	SummaryItems      []SummaryItemDTO  `json:"summary_items"`
	ShopperResultURL  string            `json:"shopper_result_url"`
}

type SummaryItemDTO struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// BeginCheckoutResponse is returned from POST /checkouts.
type BeginCheckoutResponse struct {
	AttemptID      string                 `json:"attempt_id"`
	CheckoutID     string                 `json:"checkout_id"`
	Status         string                 `json:"status"`
	Replayed       bool                   `json:"replayed,omitempty"`
	PaymentRequest PaymentRequestResponse `json:"payment_request"`
	Details        map[string]any         `json:"details,omitempty"`
}

// OutcomeResponse is the terminal outcome of a checkout flow.
type OutcomeResponse struct {
	CheckoutID    string `json:"checkout_id"`
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
	UserCancelled bool   `json:"user_cancelled,omitempty"`
}

// VerificationResponse is the reconciled backend status of an attempt.
type VerificationResponse struct {
	CheckoutID    string `json:"checkout_id"`
	BackendStatus bool   `json:"backend_status"`
	GatewayCode   string `json:"gateway_code,omitempty"`
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// AttemptResponse represents a stored checkout attempt.
type AttemptResponse struct {
	ID            string     `json:"id"`
	CheckoutID    string     `json:"checkout_id"`
	Amount        string     `json:"amount"`
	BrandType     int        `json:"brand_type"`
	Status        string     `json:"status"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	UserCancelled bool       `json:"user_cancelled"`
	GatewayCode   *string    `json:"gateway_code,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromPaymentRequest converts an assembled payment request to API response.
func FromPaymentRequest(req authorizer.Request) PaymentRequestResponse {
	networks := make([]string, 0, len(req.SupportedNetworks))
	for _, n := range req.SupportedNetworks {
		networks = append(networks, string(n))
	}
	items := make([]SummaryItemDTO, 0, len(req.SummaryItems))
	for _, it := range req.SummaryItems {
		items = append(items, SummaryItemDTO{Label: it.Label, Amount: it.Amount})
	}
	return PaymentRequestResponse{
		MerchantID:        req.MerchantID,
		SupportedNetworks: networks,
		CountryCode:       req.CountryCode,
		CurrencyCode:      req.CurrencyCode,
		SummaryItems:      items,
		ShopperResultURL:  req.ShopperResultURL,
	}
}

// FromOutcome converts a domain outcome to API response.
func FromOutcome(out *checkout.Outcome) *OutcomeResponse {
	return &OutcomeResponse{
		CheckoutID:    out.CheckoutID,
		Success:       out.Success,
		FailureReason: out.FailureReason,
		UserCancelled: out.UserCancelled,
	}
}

// FromAttempt converts a domain attempt to API response.
func FromAttempt(a *checkout.Attempt) *AttemptResponse {
	return &AttemptResponse{
		ID:            a.ID.String(),
		CheckoutID:    a.CheckoutID,
		Amount:        a.Amount.StringFixed(2),
		BrandType:     a.BrandType,
		Status:        string(a.Status),
		FailureReason: a.FailureReason,
		UserCancelled: a.UserCancelled,
		GatewayCode:   a.GatewayCode,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		ResolvedAt:    a.ResolvedAt,
	}
}

// toNetworks converts request network strings to domain networks.
func toNetworks(in []string) []checkout.Network {
	out := make([]checkout.Network, 0, len(in))
	for _, n := range in {
		out = append(out, checkout.Network(n))
	}
	return out
}

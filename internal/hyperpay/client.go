package hyperpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/checkout"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

const (
	checkoutPath = "/hyperpay"
	statusPath   = "/check-hyperpay"
)

// ProgressFunc receives the advisory loading state around each backend call.
// It is UI-facing state only and never part of the call's result.
type ProgressFunc func(loading bool)

// Client talks to the store backend's checkout endpoints.
type Client struct {
	baseURL  string
	language string
	http     *http.Client
	logger   zerolog.Logger
	progress ProgressFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithProgress installs a hook for the advisory loading flag.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) { c.progress = fn }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a backend checkout client. language is the value sent as
// Accept-Language on every request.
func NewClient(baseURL, language string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		language: language,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FormatAmount serializes an amount with exactly two fraction digits and a
// period decimal separator, rounding half away from zero (1.5 -> "1.50",
// 3.005 -> "3.01").
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// --- Backend response DTOs ---

type resultInfo struct {
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

type checkoutItem struct {
	Result         *resultInfo `json:"result"`
	BuildNumber    *string     `json:"buildNumber"`
	Timestamp      *string     `json:"timestamp"`
	NDC            *string     `json:"ndc"`
	ID             *string     `json:"id"`
	PaymentOrderID *string     `json:"payment_order_id"`
	OrderNo        *string     `json:"order_no"`
	Amount         *string     `json:"amount"`
}

type checkoutResponse struct {
	Status  bool          `json:"status"`
	Code    *int          `json:"code"`
	Message *string       `json:"message"`
	Items   *checkoutItem `json:"items"`
}

type statusItem struct {
	Result      *resultInfo `json:"result"`
	BuildNumber *string     `json:"buildNumber"`
	Timestamp   *string     `json:"timestamp"`
	NDC         *string     `json:"ndc"`
}

type statusResponse struct {
	Status  bool        `json:"status"`
	Code    *int        `json:"code"`
	Message *string     `json:"message"`
	Items   *statusItem `json:"items"`
}

// RequestCheckout asks the backend to issue a checkout id for the given
// amount and brand. The auth token must be non-empty; validation failures
// happen before any network call.
func (c *Client) RequestCheckout(ctx context.Context, amount decimal.Decimal, brandType int, authToken string) (*checkout.Session, error) {
	if authToken == "" {
		c.setLoading(false)
		return nil, derrors.NewValidationError("auth_token", "cannot be empty")
	}
	if !amount.IsPositive() {
		c.setLoading(false)
		return nil, derrors.NewValidationError("amount", "must be greater than 0")
	}

	form := url.Values{}
	form.Set("type", strconv.Itoa(brandType))
	form.Set("amount", FormatAmount(amount))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkoutPath, bytes.NewBufferString(form.Encode()))
	if err != nil {
		c.setLoading(false)
		return nil, derrors.NewDomainError("invalid_url", "invalid checkout endpoint", derrors.ErrInvalidBaseURL)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("token", authToken)
	req.Header.Set("Accept-Language", c.language)

	c.setLoading(true)
	defer c.setLoading(false)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("checkout request failed")
		return nil, derrors.NewDomainError("network_error", "no data received from backend", derrors.ErrNoData)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("checkout response read failed")
		return nil, derrors.NewDomainError("network_error", "no data received from backend", derrors.ErrNoData)
	}

	var decoded checkoutResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.Error().Err(err).Msg("checkout response decode failed")
		return nil, derrors.NewDomainError("decode_error", "failed to decode checkout response", derrors.ErrDecodeFailed)
	}

	if !decoded.Status {
		msg := "failed to obtain a checkout id"
		if decoded.Message != nil && *decoded.Message != "" {
			msg = *decoded.Message
		}
		return nil, derrors.NewDomainError("backend_rejected", msg, derrors.ErrBackendRejected)
	}

	if decoded.Items == nil || decoded.Items.ID == nil || *decoded.Items.ID == "" {
		return nil, derrors.NewDomainError("missing_checkout_id", "backend returned success without a checkout id", derrors.ErrMissingCheckoutID)
	}

	return &checkout.Session{
		CheckoutID: *decoded.Items.ID,
		Amount:     amount,
		BrandType:  brandType,
		RawDetails: rawItems(body),
	}, nil
}

// CheckStatus polls the backend's check-payment endpoint and reconciles the
// backend's declared status with the classified gateway result code.
func (c *Client) CheckStatus(ctx context.Context, checkoutID string, brandType int, authToken string) (*checkout.StatusResult, error) {
	if authToken == "" {
		c.setLoading(false)
		return nil, derrors.NewValidationError("auth_token", "cannot be empty")
	}

	endpoint := c.baseURL + statusPath + "?hyperpay_id=" + url.QueryEscape(checkoutID)
	payload, _ := json.Marshal(map[string]int{"type": brandType})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		c.setLoading(false)
		return nil, derrors.NewDomainError("invalid_url", "invalid status endpoint", derrors.ErrInvalidBaseURL)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", authToken)
	req.Header.Set("Accept-Language", c.language)

	c.setLoading(true)
	defer c.setLoading(false)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("status check failed")
		return nil, derrors.NewDomainError("network_error", "no status data received from backend", derrors.ErrNoData)
	}
	defer resp.Body.Close()

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Error().Err(err).Msg("status response decode failed")
		return nil, derrors.NewDomainError("decode_error", "failed to decode status response", derrors.ErrDecodeFailed)
	}

	gatewayCode := ""
	if decoded.Items != nil && decoded.Items.Result != nil && decoded.Items.Result.Code != nil {
		gatewayCode = *decoded.Items.Result.Code
	}

	result := &checkout.StatusResult{
		BackendStatus:   decoded.Status,
		GatewayCode:     gatewayCode,
		CombinedSuccess: decoded.Status || IsSuccessCode(gatewayCode),
	}

	if !result.CombinedSuccess {
		result.FailureReason = failureReason(&decoded)
	}
	return result, nil
}

// failureReason picks the most specific failure text available: the nested
// gateway description, then the backend message, then a generic fallback.
func failureReason(resp *statusResponse) string {
	if resp.Items != nil && resp.Items.Result != nil &&
		resp.Items.Result.Description != nil && *resp.Items.Result.Description != "" {
		return *resp.Items.Result.Description
	}
	if resp.Message != nil && *resp.Message != "" {
		return *resp.Message
	}
	return "payment failed"
}

// rawItems extracts the untyped items payload for UI display.
func rawItems(body []byte) map[string]any {
	var raw struct {
		Items map[string]any `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	return raw.Items
}

func (c *Client) setLoading(v bool) {
	if c.progress != nil {
		c.progress(v)
	}
}

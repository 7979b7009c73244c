package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

// OppwaSubmitter submits device credentials to the OPPWA payment endpoint
// that backs HyperPay. Used when the gateway runs in live mode.
type OppwaSubmitter struct {
	name    string
	baseURL string
	http    *http.Client
}

func NewOppwaSubmitter(name, baseURL string) *OppwaSubmitter {
	return &OppwaSubmitter{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (s *OppwaSubmitter) Name() string { return s.name }

type oppwaResult struct {
	Result struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"result"`
}

// Submit posts the wallet credential against the checkout and returns the
// gateway result code verbatim.
func (s *OppwaSubmitter) Submit(ctx context.Context, tx Transaction) (*Result, error) {
	form := url.Values{}
	form.Set("paymentBrand", "APPLEPAY")
	form.Set("applePay.token", string(tx.Params.TokenData))
	form.Set("shopperResultUrl", tx.Params.ShopperResultURL)

	endpoint := fmt.Sprintf("%s/v1/checkouts/%s/payment", s.baseURL, url.PathEscape(tx.Params.CheckoutID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, derrors.NewDomainError("gateway_unavailable", "payment gateway unreachable", derrors.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	var decoded oppwaResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, derrors.NewDomainError("gateway_error", "malformed gateway response", derrors.ErrGatewayRejected)
	}

	result := &Result{Code: &decoded.Result.Code}
	if decoded.Result.Description != "" {
		desc := decoded.Result.Description
		result.Description = &desc
	}
	return result, nil
}

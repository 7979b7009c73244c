package hyperpay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.5", "1.50"},
		{"2", "2.00"},
		{"3.005", "3.01"}, // rounds half away from zero
		{"25", "25.00"},
		{"0.1", "0.10"},
		{"99.999", "100.00"},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, FormatAmount(d), "amount %s", tt.in)
	}
}

func TestRequestCheckout_EmptyToken_NoNetworkCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25.00), 1, "")

	var verr *derrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "auth_token", verr.Field)
	assert.False(t, called, "no request must be issued without a token")
}

func TestRequestCheckout_NonPositiveAmount(t *testing.T) {
	c := NewClient("http://backend.invalid", "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.Zero, 1, "tok")

	var verr *derrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
}

func TestRequestCheckout_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hyperpay", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "shopper-token", r.Header.Get("token"))
		assert.Equal(t, "ar", r.Header.Get("Accept-Language"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1", r.PostForm.Get("type"))
		assert.Equal(t, "25.00", r.PostForm.Get("amount"))

		io.WriteString(w, `{"status":true,"items":{"id":"CO123","ndc":"8ac7a4c9"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	sess, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "shopper-token")
	require.NoError(t, err)
	assert.Equal(t, "CO123", sess.CheckoutID)
	assert.Equal(t, 1, sess.BrandType)
	assert.True(t, sess.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "CO123", sess.RawDetails["id"])
	assert.Equal(t, "8ac7a4c9", sess.RawDetails["ndc"])
}

func TestRequestCheckout_BackendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false,"message":"limit exceeded"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")

	require.ErrorIs(t, err, derrors.ErrBackendRejected)
	var derr *derrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "limit exceeded", derr.Message)
}

func TestRequestCheckout_BackendRejected_FallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")

	var derr *derrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "failed to obtain a checkout id", derr.Message)
}

func TestRequestCheckout_MissingCheckoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":true,"items":{"ndc":"x"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")
	assert.ErrorIs(t, err, derrors.ErrMissingCheckoutID)
}

func TestRequestCheckout_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")
	assert.ErrorIs(t, err, derrors.ErrDecodeFailed)
}

func TestRequestCheckout_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "ar")
	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")
	assert.ErrorIs(t, err, derrors.ErrNoData)
}

func TestRequestCheckout_ProgressToggled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":true,"items":{"id":"CO1"}}`)
	}))
	defer srv.Close()

	var states []bool
	c := NewClient(srv.URL, "ar", WithProgress(func(loading bool) {
		states = append(states, loading)
	}))

	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, states)
}

func TestRequestCheckout_ProgressClearedOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false,"message":"nope"}`)
	}))
	defer srv.Close()

	var states []bool
	c := NewClient(srv.URL, "ar", WithProgress(func(loading bool) {
		states = append(states, loading)
	}))

	_, err := c.RequestCheckout(context.Background(), decimal.NewFromFloat(25), 1, "tok")
	require.Error(t, err)
	assert.Equal(t, []bool{true, false}, states)
}

// --- CheckStatus ---

func TestCheckStatus_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/check-hyperpay", r.URL.Path)
		assert.Equal(t, "CO 123/x", r.URL.Query().Get("hyperpay_id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "shopper-token", r.Header.Get("token"))
		assert.Equal(t, "ar", r.Header.Get("Accept-Language"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"type":2}`, string(body))

		io.WriteString(w, `{"status":true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	res, err := c.CheckStatus(context.Background(), "CO 123/x", 2, "shopper-token")
	require.NoError(t, err)
	assert.True(t, res.CombinedSuccess)
}

func TestCheckStatus_CombinedOrLogic(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "backend false, gateway success code",
			body: `{"status":false,"items":{"result":{"code":"000.000.000"}}}`,
			want: true,
		},
		{
			name: "backend true, no gateway code",
			body: `{"status":true}`,
			want: true,
		},
		{
			name: "backend false, no gateway code",
			body: `{"status":false}`,
			want: false,
		},
		{
			name: "backend false, declined gateway code",
			body: `{"status":false,"items":{"result":{"code":"800.100.153"}}}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "ar")
			res, err := c.CheckStatus(context.Background(), "CO123", 1, "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.CombinedSuccess)
		})
	}
}

func TestCheckStatus_FailureReasonPrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "nested description wins",
			body: `{"status":false,"message":"top level","items":{"result":{"code":"800.100.153","description":"card declined"}}}`,
			want: "card declined",
		},
		{
			name: "top-level message next",
			body: `{"status":false,"message":"top level"}`,
			want: "top level",
		},
		{
			name: "generic fallback",
			body: `{"status":false}`,
			want: "payment failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "ar")
			res, err := c.CheckStatus(context.Background(), "CO123", 1, "tok")
			require.NoError(t, err)
			assert.False(t, res.CombinedSuccess)
			assert.Equal(t, tt.want, res.FailureReason)
		})
	}
}

func TestCheckStatus_EmptyToken_NoNetworkCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.CheckStatus(context.Background(), "CO123", 1, "")

	var verr *derrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, called)
}

func TestCheckStatus_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	_, err := c.CheckStatus(context.Background(), "CO123", 1, "tok")
	assert.ErrorIs(t, err, derrors.ErrDecodeFailed)
}

func TestCheckStatus_GatewayCodeSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false,"items":{"result":{"code":"000.100.110","description":"pending review"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ar")
	res, err := c.CheckStatus(context.Background(), "CO123", 1, "tok")
	require.NoError(t, err)
	assert.Equal(t, "000.100.110", res.GatewayCode)
	assert.True(t, res.CombinedSuccess)
	assert.Empty(t, res.FailureReason)
}

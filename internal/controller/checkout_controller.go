package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wishyapp/payments/internal/domain/checkout"
	domainErrors "github.com/wishyapp/payments/internal/domain/errors"
	"github.com/wishyapp/payments/internal/middleware"
	"github.com/wishyapp/payments/internal/service"
)

// CheckoutController handles checkout-related HTTP requests.
type CheckoutController struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(checkoutService *service.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// Begin handles POST /api/v1/checkouts
func (h *CheckoutController) Begin(w http.ResponseWriter, r *http.Request) {
	var req BeginCheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authToken, ok := middleware.GetAuthToken(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrMissingAuthToken)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	resp, err := h.checkoutService.Begin(r.Context(), service.BeginCheckoutRequest{
		IdempotencyKey: idempotencyKey,
		AuthToken:      authToken,
		Amount:         req.Amount,
		BrandType:      req.BrandType,
		DeviceNetworks: toNetworks(req.SupportedNetworks),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	out := BeginCheckoutResponse{
		AttemptID:      resp.Attempt.ID.String(),
		CheckoutID:     resp.Attempt.CheckoutID,
		Status:         string(resp.Attempt.Status),
		Replayed:       resp.Replayed,
		PaymentRequest: FromPaymentRequest(resp.PaymentRequest),
	}
	if resp.Session != nil {
		out.Details = resp.Session.RawDetails
	}
	writeJSON(w, status, out)
}

// Authorized handles POST /api/v1/checkouts/{id}/authorized
func (h *CheckoutController) Authorized(w http.ResponseWriter, r *http.Request) {
	var req AuthorizedRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authToken, _ := middleware.GetAuthToken(r.Context())

	out, err := h.checkoutService.HandleAuthorized(r.Context(), service.AuthorizeRequest{
		CheckoutID: chi.URLParam(r, "id"),
		TokenData:  req.TokenData,
		AuthToken:  authToken,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOutcome(out))
}

// Dismissed handles POST /api/v1/checkouts/{id}/dismissed
func (h *CheckoutController) Dismissed(w http.ResponseWriter, r *http.Request) {
	out, err := h.checkoutService.HandleDismissed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOutcome(out))
}

// Verify handles POST /api/v1/checkouts/{id}/verify
func (h *CheckoutController) Verify(w http.ResponseWriter, r *http.Request) {
	authToken, ok := middleware.GetAuthToken(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrMissingAuthToken)
		return
	}

	checkoutID := chi.URLParam(r, "id")
	result, err := h.checkoutService.Verify(r.Context(), checkoutID, authToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VerificationResponse{
		CheckoutID:    checkoutID,
		BackendStatus: result.BackendStatus,
		GatewayCode:   result.GatewayCode,
		Success:       result.CombinedSuccess,
		FailureReason: result.FailureReason,
	})
}

// Get handles GET /api/v1/checkouts/{id}
func (h *CheckoutController) Get(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.checkoutService.GetAttempt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if attempt == nil {
		writeError(w, domainErrors.ErrAttemptNotFound)
		return
	}

	writeJSON(w, http.StatusOK, FromAttempt(attempt))
}

// List handles GET /api/v1/checkouts
func (h *CheckoutController) List(w http.ResponseWriter, r *http.Request) {
	filter := checkout.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := checkout.AttemptStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("brand_type"); s != "" {
		if bt, err := strconv.Atoi(s); err == nil {
			filter.BrandType = &bt
		}
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	attempts, err := h.checkoutService.ListAttempts(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp = append(resp, FromAttempt(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

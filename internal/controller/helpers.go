package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	domainErrors "github.com/wishyapp/payments/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrAttemptNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrFlowNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrMissingAuthToken, http.StatusUnauthorized, "auth_required"},
	{domainErrors.ErrSheetUnsupported, http.StatusUnprocessableEntity, "sheet_unsupported"},
	{domainErrors.ErrBackendRejected, http.StatusUnprocessableEntity, "backend_rejected"},
	{domainErrors.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domainErrors.ErrInvalidPaymentParams, http.StatusBadRequest, "invalid_payment_params"},
	{domainErrors.ErrNoData, http.StatusBadGateway, "backend_unreachable"},
	{domainErrors.ErrDecodeFailed, http.StatusBadGateway, "backend_bad_response"},
	{domainErrors.ErrMissingCheckoutID, http.StatusBadGateway, "backend_bad_response"},
	{domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
	{domainErrors.ErrDuplicateAttempt, http.StatusConflict, "duplicate_request"},
	{domainErrors.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainErrors.ErrFlowResolved, http.StatusConflict, "flow_resolved"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

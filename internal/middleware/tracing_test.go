package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestTracing_PassesResponseThrough(t *testing.T) {
	body := `{"checkout_id":"CO123"}`
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(body))
	})

	wrapped := Tracing()(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkouts", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, body, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestTracing_WithChiRoutePattern(t *testing.T) {
	// Mounted inside a chi router the span name uses the route pattern,
	// e.g. "POST /api/v1/checkouts/{id}/verify".
	r := chi.NewRouter()
	r.Use(Tracing())
	r.Post("/api/v1/checkouts/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkouts/CO123/verify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_WithoutChiRoutePattern(t *testing.T) {
	// Outside a chi router the raw path is the fallback span name.
	wrapped := Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_PreservesErrorStatus(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusInternalServerError,
	}

	for _, status := range statuses {
		wrapped := Tracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/checkouts/CO123", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, status, w.Code)
	}
}

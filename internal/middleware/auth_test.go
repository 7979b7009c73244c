package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireToken_MissingHeader(t *testing.T) {
	handler := RequireToken()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_required")
}

func TestRequireToken_ForwardsToken(t *testing.T) {
	var seen string
	handler := RequireToken()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := GetAuthToken(r.Context())
		require.True(t, ok)
		seen = token
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("token", "session-abc")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "session-abc", seen)
}

package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteBadRequest(w, "password must be at least 8 characters")

	assert.Equal(t, 400, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkghttp.CodeInvalidInput, resp.Error)
	assert.Equal(t, "password must be at least 8 characters", resp.Message)
}

func TestWriteInvalidCredentials_IsStable(t *testing.T) {
	first := httptest.NewRecorder()
	second := httptest.NewRecorder()

	pkghttp.WriteInvalidCredentials(first)
	pkghttp.WriteInvalidCredentials(second)

	assert.Equal(t, 401, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.JSONEq(t, `{"error":"invalid_credentials","message":"Invalid credentials"}`, first.Body.String())
}

func TestWriteTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteTooManyRequests(w, 42)

	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkghttp.CodeRateLimitExceeded, resp.Error)
	assert.Contains(t, resp.Message, "42 seconds")
}

func TestWriteServerError(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteServerError(w)

	assert.Equal(t, 500, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkghttp.CodeServerError, resp.Error)
	assert.Equal(t, "Internal server error", resp.Message)
}

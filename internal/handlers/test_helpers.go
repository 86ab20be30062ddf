package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to request context for testing
// authenticated endpoints
func WithSessionContext(req *http.Request, accountID, tokenID string, expiresAt time.Time) *http.Request {
	claims := &models.TokenClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	LogoutFunc         func(ctx context.Context, token string) error
	ChangePasswordFunc func(ctx context.Context, in services.ChangePasswordInput) error
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, token)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, in services.ChangePasswordInput) error {
	if m.ChangePasswordFunc == nil {
		return nil
	}
	return m.ChangePasswordFunc(ctx, in)
}

// MockEventService implements EventServiceInterface for testing
type MockEventService struct {
	RecentEventsFunc func(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error)
}

func (m *MockEventService) RecentEvents(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error) {
	if m.RecentEventsFunc == nil {
		return nil, nil
	}
	return m.RecentEventsFunc(ctx, accountID, limit)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err       error
	PoolStats database.PoolStats
}

func (m *MockPinger) HealthCheck(ctx context.Context) error {
	return m.Err
}

func (m *MockPinger) Stats() database.PoolStats {
	return m.PoolStats
}

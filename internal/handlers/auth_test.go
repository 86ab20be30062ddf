package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/handlers"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(svc handlers.AuthServiceInterface) *handlers.AuthHandler {
	return handlers.NewAuthHandler(svc, &handlers.MockEventService{}, nil, nil)
}

// ── Login ─────────────────────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	expires := time.Now().Add(8 * time.Hour).UTC().Truncate(time.Second)
	var got services.LoginInput
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
			got = in
			return &services.AuthResult{
				Token:     "signed.session.token",
				TokenID:   "token-1",
				ExpiresAt: expires,
				Account:   &models.AccountProfile{ID: "acct-1", Email: "admin@example.com", Role: "admin"},
			}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "admin@example.com",
		Password: "password123",
	})
	req.RemoteAddr = "203.0.113.10:51000"
	req.Header.Set("User-Agent", "curl/8.0")
	w := httptest.NewRecorder()
	newHandler(mockAuth).Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "signed.session.token", resp.Token)
	assert.Equal(t, "Login successful", resp.Message)
	require.NotNil(t, resp.User)
	assert.Equal(t, "acct-1", resp.User.ID)
	assert.True(t, expires.Equal(resp.ExpiresAt))

	assert.Equal(t, "203.0.113.10", got.ClientIdentifier)
	assert.Equal(t, "curl/8.0", got.UserAgent)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogin_MalformedBody(t *testing.T) {
	called := false
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
			called = true
			return nil, nil
		},
	}

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":`))
	w := httptest.NewRecorder()
	newHandler(mockAuth).Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, pkghttp.CodeInvalidInput)
	assert.Contains(t, w.Body.String(), "Invalid request body")
	assert.False(t, called)
}

func TestLogin_OversizedFieldRejectedBeforeService(t *testing.T) {
	called := false
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
			called = true
			return nil, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    strings.Repeat("a", 321) + "@example.com",
		Password: "password123",
	})
	w := httptest.NewRecorder()
	newHandler(mockAuth).Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, pkghttp.CodeInvalidInput)
	assert.Contains(t, w.Body.String(), "email must be at most 320 characters")
	assert.False(t, called)
}

func TestValidateRequest_Messages(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{
			name:    "valid change",
			req:     handlers.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "new"},
			wantErr: "",
		},
		{
			name:    "missing current password",
			req:     handlers.ChangePasswordRequest{NewPassword: "new"},
			wantErr: "current_password is required",
		},
		{
			name:    "oversized password",
			req:     handlers.LoginRequest{Email: "admin@example.com", Password: strings.Repeat("x", 1025)},
			wantErr: "password must be at most 1024 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handlers.ValidateRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation error",
			err:        &auth.ValidationError{Field: "password", Message: "password must be at least 8 characters"},
			wantStatus: http.StatusBadRequest,
			wantCode:   pkghttp.CodeInvalidInput,
			wantMsg:    "password must be at least 8 characters",
		},
		{
			name:       "rate limited",
			err:        &services.RateLimitError{Policy: services.PolicyLogin, RetryAfterSeconds: 42},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   pkghttp.CodeRateLimitExceeded,
			wantMsg:    "Too many attempts. Please try again in 42 seconds.",
		},
		{
			name:       "invalid credentials",
			err:        models.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   pkghttp.CodeInvalidCredentials,
			wantMsg:    "Invalid credentials",
		},
		{
			name:       "locked",
			err:        fmt.Errorf("%w: %w", models.ErrInvalidCredentials, models.ErrAccountLocked),
			wantStatus: http.StatusUnauthorized,
			wantCode:   pkghttp.CodeInvalidCredentials,
			wantMsg:    "Invalid credentials",
		},
		{
			name:       "configuration",
			err:        models.ErrConfiguration,
			wantStatus: http.StatusInternalServerError,
			wantCode:   pkghttp.CodeServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   pkghttp.CodeServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
					return nil, tt.err
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "admin@example.com",
				Password: "password123",
			})
			w := httptest.NewRecorder()
			newHandler(mockAuth).Login(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestLogin_RateLimitSetsRetryAfter(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
			return nil, &services.RateLimitError{Policy: services.PolicyLogin, RetryAfterSeconds: 900}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "admin@example.com",
		Password: "password123",
	})
	w := httptest.NewRecorder()
	newHandler(mockAuth).Login(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
}

func TestLogin_UnknownAccountAndWrongPasswordAreIdentical(t *testing.T) {
	// The service returns the same sentinel for both; locking wraps it
	bodies := make([]string, 0, 3)
	for _, err := range []error{
		models.ErrInvalidCredentials,
		models.ErrInvalidCredentials,
		fmt.Errorf("%w: %w", models.ErrInvalidCredentials, models.ErrAccountLocked),
	} {
		mockAuth := &handlers.MockAuthService{
			LoginFunc: func(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
				return nil, err
			},
		}
		req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
			Email:    "admin@example.com",
			Password: "password123",
		})
		w := httptest.NewRecorder()
		newHandler(mockAuth).Login(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, bodies[0], bodies[2])
}

// ── Logout ────────────────────────────────────────────────────────────────────

func TestLogout_Success(t *testing.T) {
	var revoked string
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, token string) error {
			revoked = token
			return nil
		},
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	w := httptest.NewRecorder()
	newHandler(mockAuth).Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc.def.ghi", revoked)
}

func TestLogout_InvalidToken(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, token string) error {
			return models.ErrInvalidToken
		},
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	w := httptest.NewRecorder()
	newHandler(mockAuth).Logout(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, pkghttp.CodeUnauthorized)
}

// ── Session ───────────────────────────────────────────────────────────────────

func TestSession_ReturnsClaims(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	req := handlers.WithSessionContext(httptest.NewRequest("GET", "/auth/session", nil), "acct-1", "token-1", expires)
	w := httptest.NewRecorder()
	newHandler(&handlers.MockAuthService{}).Session(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "acct-1", resp.UserID)
	assert.Equal(t, "token-1", resp.TokenID)
	assert.Equal(t, "admin", resp.Role)
	assert.True(t, expires.Equal(resp.ExpiresAt))
}

func TestSession_NoClaims(t *testing.T) {
	w := httptest.NewRecorder()
	newHandler(&handlers.MockAuthService{}).Session(w, httptest.NewRequest("GET", "/auth/session", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, pkghttp.CodeUnauthorized)
}

// ── ChangePassword ────────────────────────────────────────────────────────────

func TestChangePassword_Success(t *testing.T) {
	var got services.ChangePasswordInput
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, in services.ChangePasswordInput) error {
			got = in
			return nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/password", handlers.ChangePasswordRequest{
		CurrentPassword: "Old-Password-1!",
		NewPassword:     "New-Password-2?",
	})
	req = handlers.WithSessionContext(req, "acct-1", "token-1", time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	newHandler(mockAuth).ChangePassword(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "acct-1", got.AccountID)
	assert.Equal(t, "Old-Password-1!", got.CurrentPassword)
	assert.Equal(t, "New-Password-2?", got.NewPassword)
}

func TestChangePassword_MissingField(t *testing.T) {
	req := handlers.NewTestRequest(t, "POST", "/auth/password", map[string]string{
		"current_password": "Old-Password-1!",
	})
	req = handlers.WithSessionContext(req, "acct-1", "token-1", time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	newHandler(&handlers.MockAuthService{}).ChangePassword(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, pkghttp.CodeInvalidInput)
	assert.Contains(t, w.Body.String(), "new_password is required")
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(ctx context.Context, in services.ChangePasswordInput) error {
			return models.ErrInvalidCredentials
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/password", handlers.ChangePasswordRequest{
		CurrentPassword: "Wrong-Password-1!",
		NewPassword:     "New-Password-2?",
	})
	req = handlers.WithSessionContext(req, "acct-1", "token-1", time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	newHandler(mockAuth).ChangePassword(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, pkghttp.CodeInvalidCredentials)
}

// ── Events ────────────────────────────────────────────────────────────────────

func TestEvents_ListsAccountEvents(t *testing.T) {
	var gotAccount string
	var gotLimit int
	events := &handlers.MockEventService{
		RecentEventsFunc: func(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error) {
			gotAccount, gotLimit = accountID, limit
			e := models.NewSecurityEvent(models.EventLoginFailed, time.Now()).
				WithAccount(accountID).
				With("reason", "invalid_credentials")
			e.ID = "evt-1"
			return []models.SecurityEvent{e}, nil
		},
	}
	h := handlers.NewAuthHandler(&handlers.MockAuthService{}, events, nil, nil)

	req := handlers.WithSessionContext(httptest.NewRequest("GET", "/auth/events?limit=10", nil), "acct-1", "token-1", time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	h.Events(w, req)

	var resp handlers.SecurityEventsResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt-1", resp.Events[0].ID)
	assert.Equal(t, "login_failed", resp.Events[0].Type)
	assert.Equal(t, "MEDIUM", resp.Events[0].Severity)
	assert.Equal(t, "invalid_credentials", resp.Events[0].Metadata["reason"])
	assert.Equal(t, "acct-1", gotAccount)
	assert.Equal(t, 10, gotLimit)
}

func TestEvents_InvalidLimit(t *testing.T) {
	req := handlers.WithSessionContext(httptest.NewRequest("GET", "/auth/events?limit=-3", nil), "acct-1", "token-1", time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	newHandler(&handlers.MockAuthService{}).Events(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, pkghttp.CodeInvalidInput)
}

// ── Health ────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	pinger := &handlers.MockPinger{PoolStats: database.PoolStats{TotalConns: 4, IdleConns: 3, AcquiredConns: 1, MaxConns: 25}}
	handlers.NewHealthHandler(pinger).Health(w, httptest.NewRequest("GET", "/health", nil))

	var resp handlers.HealthResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "healthy", resp.Status)
	require.NotNil(t, resp.Pool)
	assert.Equal(t, int32(1), resp.Pool.AcquiredConns)
	assert.Equal(t, int32(25), resp.Pool.MaxConns)

	w = httptest.NewRecorder()
	handlers.NewHealthHandler(&handlers.MockPinger{Err: errors.New("down")}).Health(w, httptest.NewRequest("GET", "/health", nil))

	var down handlers.HealthResponse
	handlers.AssertJSONResponse(t, w, http.StatusServiceUnavailable, &down)
	assert.Equal(t, "down", down.Database)
	assert.Nil(t, down.Pool)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, in services.ChangePasswordInput) error
}

// EventServiceInterface lists the security events of an account
type EventServiceInterface interface {
	RecentEvents(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	events   EventServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, events EventServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:  service,
		events:   events,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. Field rules beyond
// size are enforced by the auth service so every caller gets the same
// messages.
type LoginRequest struct {
	Email    string `json:"email" validate:"max=320"`
	Password string `json:"password" validate:"max=1024"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=1024"`
	NewPassword     string `json:"new_password" validate:"required,max=1024"`
}

// Response DTOs

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expires_at"`
	User      *models.AccountProfile `json:"user"`
	Message   string                 `json:"message"`
}

// SessionResponse describes the session behind the presented token
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	TokenID   string    `json:"token_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SecurityEventResponse is the public view of a security event
type SecurityEventResponse struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	IPAddress string                 `json:"ip_address"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SecurityEventsResponse wraps a page of events
type SecurityEventsResponse struct {
	Events []SecurityEventResponse `json:"events"`
}

// Login handles administrator login
// @Summary Admin login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email:            req.Email,
		Password:         req.Password,
		ClientIdentifier: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Account,
		Message:   "Login successful",
	})
}

// Logout revokes the session of the presented token
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		pkghttp.WriteUnauthorized(w, "invalid authorization header format")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.writeAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session describes the current session
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp := SessionResponse{
		UserID:  claims.AccountID(),
		TokenID: claims.TokenID(),
		Role:    claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ChangePassword replaces the password of the logged in administrator
// @Router /auth/password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), services.ChangePasswordInput{
		AccountID:        claims.AccountID(),
		CurrentPassword:  req.CurrentPassword,
		NewPassword:      req.NewPassword,
		ClientIdentifier: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Events lists recent security events of the logged in administrator
// @Param limit query int false "Maximum number of events"
// @Router /auth/events [get]
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	limit := services.MaxEventPage
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			pkghttp.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.events.RecentEvents(r.Context(), claims.AccountID(), limit)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	resp := SecurityEventsResponse{Events: make([]SecurityEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, SecurityEventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Severity:  e.Severity.String(),
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// writeAuthError is the single place auth failures become responses.
// Unknown accounts, wrong passwords and locks all share one 401 body.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var validationErr *auth.ValidationError
	var rateLimitErr *services.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		pkghttp.WriteBadRequest(w, validationErr.Message)
	case errors.Is(err, models.ErrInvalidInput):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.As(err, &rateLimitErr):
		pkghttp.WriteTooManyRequests(w, rateLimitErr.RetryAfterSeconds)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteInvalidCredentials(w)
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteUnauthorized(w, "invalid or expired token")
	default:
		if errors.Is(err, models.ErrConfiguration) {
			h.logger.Error("auth request failed on configuration", slog.Any("error", err))
		}
		pkghttp.WriteServerError(w)
	}
}

// decodeJSON reads a bounded JSON body into dst. It writes the 400 itself
// and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

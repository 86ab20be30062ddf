package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// Machine-readable error codes
const (
	CodeInvalidInput       = "invalid_input"
	CodeRateLimitExceeded  = "rate_limit_exceeded"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeServerError        = "server_error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error code
	Message string `json:"message"` // Human-readable message
}

// invalidCredentials is shared by every branch that must hide whether an
// account exists, so the bodies are identical by construction.
var invalidCredentials = ErrorResponse{
	Error:   CodeInvalidCredentials,
	Message: "Invalid credentials",
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteBadRequest reports an input problem. message must not echo user input.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidInput, message)
}

// WriteInvalidCredentials writes the one 401 body used for unknown
// accounts, wrong passwords and locked accounts alike.
func WriteInvalidCredentials(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, invalidCredentials)
}

// WriteUnauthorized reports a missing or unusable session token
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// WriteTooManyRequests reports a rate limit with a Retry-After header
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	WriteError(w, http.StatusTooManyRequests, CodeRateLimitExceeded,
		fmt.Sprintf("Too many attempts. Please try again in %d seconds.", retryAfterSeconds))
}

// WriteServerError hides internal detail behind a generic message
func WriteServerError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeServerError, "Internal server error")
}

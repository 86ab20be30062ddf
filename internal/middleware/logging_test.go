package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	logger, buf := bufferLogger()
	handler := SecureLogger(logger, nil)(okHandler)

	req := httptest.NewRequest("GET", "/auth/events?token=abc", nil)
	req.RemoteAddr = "192.0.2.7:999"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/auth/events?[REDACTED]", entry["path"])
	assert.Equal(t, "192.0.2.7", entry["client_ip"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.NotContains(t, buf.String(), "abc")
}

func TestSecureLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		logger, buf := bufferLogger()
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		SecureLogger(logger, nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x?limit=5", nil))

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, tt.level, entry["level"], "status %d", tt.status)
		assert.Equal(t, "/x?limit=5", entry["path"])
	}
}

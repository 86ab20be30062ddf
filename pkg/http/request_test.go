package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIPConfig(t *testing.T, cidrs ...string) *pkghttp.IPConfig {
	t.Helper()
	cfg, err := pkghttp.NewIPConfig(cidrs)
	require.NoError(t, err)
	return cfg
}

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	// Attacker tries to pick their own rate-limit identifier
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	ip := pkghttp.ExtractClientIP(req, newIPConfig(t, "10.0.0.0/8", "127.0.0.1/32"))

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	ip := pkghttp.ExtractClientIP(req, newIPConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	req.Header.Set("X-Real-IP", "198.51.100.9")

	ip := pkghttp.ExtractClientIP(req, newIPConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_NoRemoteAddr_IsUnknown(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = ""

	assert.Equal(t, pkghttp.UnknownClient, pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_RemoteAddrWithoutPort(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "198.51.100.20"

	assert.Equal(t, "198.51.100.20", pkghttp.ExtractClientIP(req, nil))
}

func TestNewIPConfig_RejectsInvalidRange(t *testing.T) {
	_, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8", "not-a-cidr"})
	assert.Error(t, err)
}

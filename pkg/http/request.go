package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// UnknownClient identifies requests whose origin cannot be determined
const UnknownClient = "unknown"

// IPConfig holds the proxies whose forwarding headers are trusted
type IPConfig struct {
	trusted []*net.IPNet
}

// NewIPConfig parses trusted proxy CIDR ranges. An invalid range is a
// configuration error and is reported at startup.
func NewIPConfig(trustedProxies []string) (*IPConfig, error) {
	cfg := &IPConfig{}
	for _, cidr := range trustedProxies {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy range %q: %w", cidr, err)
		}
		cfg.trusted = append(cfg.trusted, ipNet)
	}
	return cfg, nil
}

// ExtractClientIP returns the client address used as the rate-limit identifier.
// X-Forwarded-For and X-Real-IP are only honored when the direct peer is a
// trusted proxy. Returns UnknownClient when nothing usable is present.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddrIP(r)

	if config != nil && config.isTrusted(remoteIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				ip = strings.TrimSpace(ip)
				if net.ParseIP(ip) != nil {
					return ip
				}
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
			return xri
		}
	}

	if remoteIP == "" {
		return UnknownClient
	}
	return remoteIP
}

// remoteAddrIP strips the port from RemoteAddr
func remoteAddrIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func (c *IPConfig) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range c.trusted {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}

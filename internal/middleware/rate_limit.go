package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/services"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	"github.com/go-chi/httprate"
)

// FloodPolicy names the per-IP flood guard in rate_limit_exceeded events
const FloodPolicy = "ip_flood"

// httprate reports the end of the current window here, in unix seconds
const headerRateLimitReset = "X-RateLimit-Reset"

// RateLimitReporter records requests turned away by a rate limit
type RateLimitReporter interface {
	ReportRateLimited(ctx context.Context, meta models.RequestMetadata, accountID, policy string, retryAfterSeconds int)
}

// RateLimitConfig holds the coarse per-IP request budget applied before
// any request body is read
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
	Reporter          RateLimitReporter
}

// DefaultPublicRateLimit returns 60 requests per minute per client IP
func DefaultPublicRateLimit(ipConfig *pkghttp.IPConfig, reporter RateLimitReporter) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		IPConfig:          ipConfig,
		Reporter:          reporter,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The key honors forwarding headers only from trusted proxies.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	const window = time.Minute

	return httprate.Limit(
		config.RequestsPerMinute,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			retryAfter := retryAfterSeconds(w.Header().Get(headerRateLimitReset), time.Now(), window)
			report(r, config.Reporter, pkghttp.ExtractClientIP(r, config.IPConfig), "", FloodPolicy, retryAfter)
			pkghttp.WriteTooManyRequests(w, retryAfter)
		}),
	)
}

// retryAfterSeconds is the time left until reset, rounded up and kept
// within [1, window]. Without a usable reset header the end of the current
// aligned window is used.
func retryAfterSeconds(resetHeader string, now time.Time, window time.Duration) int {
	reset := now.Truncate(window).Add(window)
	if unix, err := strconv.ParseInt(resetHeader, 10, 64); err == nil && unix > 0 {
		reset = time.Unix(unix, 0)
	}

	seconds := int((reset.Sub(now) + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if maxSeconds := int(window / time.Second); seconds > maxSeconds {
		seconds = maxSeconds
	}
	return seconds
}

func report(r *http.Request, reporter RateLimitReporter, clientIP, accountID, policy string, retryAfter int) {
	if reporter == nil {
		return
	}
	meta := models.RequestMetadata{IPAddress: clientIP, UserAgent: r.UserAgent()}
	reporter.ReportRateLimited(r.Context(), meta, accountID, policy, retryAfter)
}

// PolicyChecker applies a named rate limit policy to an identifier
type PolicyChecker interface {
	Check(ctx context.Context, policy, identifier string) error
}

// RateLimitByAccount applies a named policy keyed by the session account.
// Requests without session claims are keyed by client IP. Must run after
// auth.SessionMiddleware to see the account.
func RateLimitByAccount(limiter PolicyChecker, policy string, ipConfig *pkghttp.IPConfig, reporter RateLimitReporter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := pkghttp.ExtractClientIP(r, ipConfig)
			identifier := "ip:" + clientIP
			var accountID string
			if claims := auth.GetClaimsFromContext(r); claims != nil && claims.AccountID() != "" {
				accountID = claims.AccountID()
				identifier = "account:" + accountID
			}

			if err := limiter.Check(r.Context(), policy, identifier); err != nil {
				var rlErr *services.RateLimitError
				if errors.As(err, &rlErr) {
					report(r, reporter, clientIP, accountID, policy, rlErr.RetryAfterSeconds)
					pkghttp.WriteTooManyRequests(w, rlErr.RetryAfterSeconds)
					return
				}
				pkghttp.WriteServerError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

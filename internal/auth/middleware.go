package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/adminauth/internal/models"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

type contextKey string

// ClaimsContextKey stores the verified *models.TokenClaims of a request
const ClaimsContextKey contextKey = "session_claims"

// SessionAuthenticator verifies a bearer token against its session record
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.TokenClaims, error)
}

// InvalidTokenReporter is told about every rejected token
type InvalidTokenReporter interface {
	ReportInvalidToken(ctx context.Context, meta models.RequestMetadata, reason string)
}

// SessionMiddleware admits requests carrying a valid, unrevoked session
// token and stores its claims in the request context. Lookup failures
// fail closed.
func SessionMiddleware(authn SessionAuthenticator, reporter InvalidTokenReporter, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			meta := models.RequestMetadata{
				IPAddress: pkghttp.ExtractClientIP(r, ipConfig),
				UserAgent: r.UserAgent(),
			}

			tokenString, ok := BearerToken(authHeader)
			if !ok {
				report(r.Context(), reporter, meta, "malformed authorization header")
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := authn.Authenticate(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, models.ErrInvalidToken) {
					reason := "invalid token"
					if IsExpired(err) {
						reason = "expired token"
					}
					report(r.Context(), reporter, meta, reason)
					pkghttp.WriteUnauthorized(w, "invalid or expired token")
					return
				}
				pkghttp.WriteServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects sessions whose role claim differs from role.
// Must run after SessionMiddleware.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}
			if claims.Role != role {
				pkghttp.WriteError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns the session claims or nil
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func report(ctx context.Context, reporter InvalidTokenReporter, meta models.RequestMetadata, reason string) {
	if reporter != nil {
		reporter.ReportInvalidToken(ctx, meta, reason)
	}
}

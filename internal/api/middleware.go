/**
 * @description
 * Request middleware for the treasury API: internal API key check, admin
 * identity and the Redis-backed rate limit on report endpoints.
 */
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mentora/treasury-service/internal/observability"
)

// AdminIDHeader carries the calling admin, set by the authenticating gateway.
const AdminIDHeader = "X-Admin-ID"

type contextKey string

const adminIDContextKey = contextKey("adminID")

// RateLimiter counts requests in a fixed window.
type RateLimiter interface {
	Consume(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// InternalAuthMiddleware validates the internal API key when one is configured.
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(requiredKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminIdentityMiddleware resolves the calling admin. With a secret configured,
// the identity comes only from an HS256 bearer token's "sub" claim and a bad
// token is rejected. Without one, the gateway's X-Admin-ID header is trusted.
func AdminIdentityMiddleware(secret string) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				adminID := strings.TrimSpace(r.Header.Get(AdminIDHeader))
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminIDContextKey, adminID)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			adminID, err := claims.GetSubject()
			if err != nil || strings.TrimSpace(adminID) == "" {
				writeError(w, http.StatusUnauthorized, "Admin ID not found in token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminIDContextKey, strings.TrimSpace(adminID))))
		})
	}
}

// AdminFromRequest returns the calling admin ID resolved by AdminIdentityMiddleware, if any.
func AdminFromRequest(r *http.Request) string {
	adminID, _ := r.Context().Value(adminIDContextKey).(string)
	return adminID
}

// RateLimitMiddleware limits requests per admin (or client address) and scope.
// Limiter failures let the request through.
func RateLimitMiddleware(limiter RateLimiter, scope string, perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := AdminFromRequest(r)
			if subject == "" {
				subject = clientAddress(r)
			}

			count, retryAfter, err := limiter.Consume(r.Context(), scope, subject, perMinute, time.Minute)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > perMinute {
				observability.RateLimitedTotal.WithLabelValues(scope).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many requests, retry later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

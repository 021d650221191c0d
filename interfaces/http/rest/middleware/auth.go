package middleware

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"

	"pantry-backend/pkg/auth"

	"go.uber.org/zap"
)

// Authenticate validates the caller on every request under /api. Requests
// arriving through API Gateway were already authorized by the Lambda
// authorizer and carry the user in headers; direct requests present a
// bearer token.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := gatewayUser(r); user != nil {
				next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
				return
			}

			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "missing authentication token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				if errors.Is(err, auth.ErrExpiredToken) {
					respondUnauthorized(w, "token has expired")
					return
				}
				respondUnauthorized(w, "invalid authentication token")
				return
			}

			user := &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
		})
	}
}

// RequireRole lets the request through when the authenticated user holds at
// least one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				respondUnauthorized(w, "authentication required")
				return
			}

			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RateLimit guards mutation routes. Authenticated callers are limited per
// user, anonymous ones per client IP. Limiter infrastructure failures fail
// open and are logged.
func RateLimit(limiter auth.RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				key = "user:" + user.UserID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter failure",
					zap.String("key", key),
					zap.Error(err),
				)
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// gatewayUser reads the identity an API Gateway authorizer injected. The
// headers are only trusted inside Lambda, where API Gateway is the sole
// ingress.
func gatewayUser(r *http.Request) *auth.UserContext {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		return nil
	}
	if r.Header.Get("X-API-Gateway-Authorized") != "true" {
		return nil
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil
	}

	user := &auth.UserContext{
		UserID: userID,
		Email:  r.Header.Get("X-User-Email"),
	}
	if roles := r.Header.Get("X-User-Roles"); roles != "" {
		user.Roles = strings.Split(roles, ",")
	}
	return user
}

// extractToken pulls the bearer token from the Authorization header, the
// auth cookie, or the token query parameter, in that order.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := r.Cookie("auth_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// clientIP resolves the originating address behind proxies
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnauthorized, message)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

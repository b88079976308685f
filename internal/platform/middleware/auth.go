package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"careledger/internal/authz"
	"careledger/internal/jwttoken"
)

// JWTValidator defines the interface for validating access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeyIdentity struct{}

// ContextKeyIdentity is exported for use in handlers.
var ContextKeyIdentity = contextKeyIdentity{}

// GetIdentity retrieves the caller identity from the context. The zero
// Identity (Authenticated=false) is returned when no auth middleware ran.
func GetIdentity(ctx context.Context) authz.Identity {
	identity, ok := ctx.Value(ContextKeyIdentity).(authz.Identity)
	if !ok {
		return authz.Identity{}
	}
	return identity
}

// RequireAuth validates the Bearer token and stores the caller identity in
// the request context. Requests without a valid token get a 401 envelope.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			subjectID, err := uuid.Parse(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			identity := authz.Identity{
				SubjectID:     subjectID,
				Role:          claims.Role,
				Authenticated: true,
			}
			ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "foodbridge/pkg/domain"
)

// Role is the actor role carried in the access token. The core never manages
// users; it only needs to know who is calling and in which capacity.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleLogistics Role = "logistics"
	RoleAdmin     Role = "admin"
)

// TokenValidator defines the interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*ActorClaims, error)
}

// ActorClaims is the identity the directory asserts about a caller.
type ActorClaims struct {
	UserID id.UserID
	Role   Role
}

type contextKeyActorID struct{}
type contextKeyRole struct{}

var (
	ContextKeyActorID = contextKeyActorID{}
	ContextKeyRole    = contextKeyRole{}
)

// GetActorID retrieves the authenticated actor id from the context.
func GetActorID(ctx context.Context) id.UserID {
	actorID, ok := ctx.Value(ContextKeyActorID).(id.UserID)
	if !ok {
		return id.UserID{}
	}
	return actorID
}

// GetRole retrieves the authenticated actor role from the context.
func GetRole(ctx context.Context) Role {
	role, ok := ctx.Value(ContextKeyRole).(Role)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth validates the bearer token and stores actor identity in context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyActorID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not in the allow
// list. Admins pass every role gate.
func RequireRole(logger *slog.Logger, roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			if role != RoleAdmin && !allowed[role] {
				logger.WarnContext(r.Context(), "forbidden - role not allowed",
					"role", string(role),
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Role is not allowed to perform this action"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
	}
}

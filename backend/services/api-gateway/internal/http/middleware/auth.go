package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	libauth "campusev/backend/libs/auth"
	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   string
}

// TokenValidator decodes bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*libauth.Claims, error)
}

// AuthMiddleware validates JWT tokens and stores the caller identity.
func AuthMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "missing authorization header"))
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "invalid authorization header"))
				return
			}
			claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				logger.Debug("token rejected", zap.Error(err))
				httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the caller stored by AuthMiddleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID > 0
}

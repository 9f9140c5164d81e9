package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/charging-service/internal/service"
)

// Identity headers set by the api-gateway after JWT validation.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// ActorFromRequest reads the caller identity. Requests without identity
// headers yield the zero Actor.
func ActorFromRequest(r *http.Request) (service.Actor, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(UserRoleHeader)))
	if raw == "" {
		if role != "" {
			return service.Actor{}, apperrors.New(apperrors.CodeUnauthorized, "role header without user id")
		}
		return service.Actor{}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return service.Actor{}, apperrors.New(apperrors.CodeUnauthorized, "invalid user id header")
	}
	return service.Actor{UserID: id, Role: role}, nil
}

// RequireIdentity rejects anonymous callers.
func RequireIdentity(logger *zap.Logger) func(http.Handler) http.Handler {
	return requireActor(logger, false)
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return requireActor(logger, true)
}

func requireActor(logger *zap.Logger, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromRequest(r)
			if err != nil {
				httpx.WriteError(w, logger, err)
				return
			}
			if actor.IsZero() {
				httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
				return
			}
			if admin && !actor.IsAdmin() {
				httpx.WriteError(w, logger, apperrors.New(apperrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Newf(apperrors.CodeValidation, "invalid %s", name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, apperrors.Newf(apperrors.CodeValidation, "invalid %s", name)
	}
	return id, nil
}

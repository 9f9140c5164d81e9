package handlers

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/api-gateway/internal/clients"
)

// AuthHandlers proxies auth-service endpoints.
type AuthHandlers struct {
	client *clients.AuthClient
	logger *zap.Logger
}

// NewAuthHandlers returns handler struct.
func NewAuthHandlers(client *clients.AuthClient, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{client: client, logger: logger}
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeValidation, "invalid body"))
		return
	}
	resp, err := h.client.Signup(r.Context(), body, forwardedHeaders(r))
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.Wrap(apperrors.CodeDependency, err, "auth service unavailable"))
		return
	}
	writeUpstream(w, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeValidation, "invalid body"))
		return
	}
	resp, err := h.client.Login(r.Context(), body, forwardedHeaders(r))
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.Wrap(apperrors.CodeDependency, err, "auth service unavailable"))
		return
	}
	writeUpstream(w, resp)
}

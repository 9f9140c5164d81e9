package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/api-gateway/internal/clients"
	"campusev/backend/services/api-gateway/internal/http/middleware"
)

// ChargingHandlers proxies charging-service endpoints.
type ChargingHandlers struct {
	client *clients.ChargingClient
	logger *zap.Logger
}

// NewChargingHandlers returns handler.
func NewChargingHandlers(client *clients.ChargingClient, logger *zap.Logger) *ChargingHandlers {
	return &ChargingHandlers{client: client, logger: logger}
}

// Proxy forwards the request, stripping the /api or /api/charging prefix.
func (h *ChargingHandlers) Proxy(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	body, err := readBody(r)
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeValidation, "invalid body"))
		return
	}

	path := upstreamPath(r.URL.Path)
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	resp, err := h.client.Forward(r.Context(), r.Method, path, body, identity.UserID, identity.Role, forwardedHeaders(r))
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.Wrap(apperrors.CodeDependency, err, "charging service unavailable"))
		return
	}
	writeUpstream(w, resp)
}

func upstreamPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "/api/charging/"); ok {
		return "/" + rest
	}
	if rest, ok := strings.CutPrefix(path, "/api"); ok && rest != "" {
		return rest
	}
	return path
}

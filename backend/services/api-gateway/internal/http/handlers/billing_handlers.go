package handlers

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/api-gateway/internal/clients"
	"campusev/backend/services/api-gateway/internal/http/middleware"
)

// BillingHandlers exposes the caller's billing history.
type BillingHandlers struct {
	client *clients.BillingClient
	logger *zap.Logger
}

// NewBillingHandlers returns handler.
func NewBillingHandlers(client *clients.BillingClient, logger *zap.Logger) *BillingHandlers {
	return &BillingHandlers{client: client, logger: logger}
}

// MyTransactions proxies GET /api/billing/me/transactions.
func (h *BillingHandlers) MyTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	resp, err := h.client.TransactionsForUser(r.Context(), identity.UserID, r.URL.RawQuery, forwardedHeaders(r))
	if err != nil {
		httpx.WriteError(w, h.logger, apperrors.Wrap(apperrors.CodeDependency, err, "billing service unavailable"))
		return
	}
	writeUpstream(w, resp)
}

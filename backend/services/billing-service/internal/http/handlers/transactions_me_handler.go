package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/billing-service/internal/models"
)

const (
	UserIDHeader = "X-User-ID"
	maxLimit     = 200
)

// TransactionLister reads a user's ledger.
type TransactionLister interface {
	TransactionsForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
}

// NewTransactionsMeHandler returns GET /billing/me/transactions handler.
func NewTransactionsMeHandler(svc TransactionLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "missing user id header"))
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			httpx.WriteError(w, logger, apperrors.New(apperrors.CodeUnauthorized, "invalid user id header"))
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit <= 0 || limit > maxLimit {
				httpx.WriteError(w, logger, apperrors.Newf(apperrors.CodeValidation, "limit must be between 1 and %d", maxLimit))
				return
			}
		}

		transactions, err := svc.TransactionsForUser(r.Context(), userID, limit)
		if err != nil {
			httpx.WriteError(w, logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"transactions": transactions,
		})
	}
}

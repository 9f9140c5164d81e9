package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/billing-service/internal/models"
)

type memStore struct {
	bySession map[int64]models.Transaction
	err       error
}

func newMemStore() *memStore {
	return &memStore{bySession: map[int64]models.Transaction{}}
}

func (m *memStore) Create(_ context.Context, tx *models.Transaction) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.bySession[tx.SessionID]; ok {
		return false, nil
	}
	tx.ID = int64(len(m.bySession) + 1)
	m.bySession[tx.SessionID] = *tx
	return true, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64, _ int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range m.bySession {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func event(t *testing.T, eventType string, payload map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]any{
		"event_id":      "evt-1",
		"event_type":    eventType,
		"event_version": 1,
		"occurred_at":   "2025-06-02T10:45:00Z",
		"producer":      "charging-service",
		"payload":       json.RawMessage(body),
	})
	require.NoError(t, err)
	return raw
}

func completedPayload() map[string]any {
	return map[string]any{
		"session_id": 42,
		"user_id":    7,
		"pile_id":    3,
		"ended_at":   "2025-06-02T10:40:00Z",
		"energy_kwh": 12.5,
		"fee_amount": 18.75,
	}
}

func TestHandleEventSettlesCompletedSession(t *testing.T) {
	store := newMemStore()
	svc := NewBillingService(store, zap.NewNop())

	require.NoError(t, svc.HandleEvent(context.Background(), event(t, EventSessionCompleted, completedPayload())))

	tx, ok := store.bySession[42]
	require.True(t, ok)
	assert.Equal(t, int64(7), tx.UserID)
	assert.Equal(t, int64(3), tx.PileID)
	assert.InDelta(t, 12.5, tx.EnergyKWh, 1e-9)
	assert.InDelta(t, 18.75, tx.Amount, 1e-9)
	assert.InDelta(t, 1.5, tx.PricePerKWh, 1e-9)
	assert.Equal(t, models.TransactionSettled, tx.Status)
	assert.Equal(t, "evt-1", tx.EventID)
	assert.True(t, tx.ChargedAt.Equal(time.Date(2025, 6, 2, 10, 40, 0, 0, time.UTC)))
}

func TestHandleEventIsIdempotentPerSession(t *testing.T) {
	store := newMemStore()
	svc := NewBillingService(store, zap.NewNop())
	raw := event(t, EventSessionCompleted, completedPayload())

	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	require.NoError(t, svc.HandleEvent(context.Background(), raw))
	assert.Len(t, store.bySession, 1)
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	store := newMemStore()
	svc := NewBillingService(store, zap.NewNop())

	require.NoError(t, svc.HandleEvent(context.Background(), event(t, "SessionReserved", map[string]any{"session_id": 1})))
	assert.Empty(t, store.bySession)
}

func TestHandleEventFallsBackToOccurredAt(t *testing.T) {
	store := newMemStore()
	svc := NewBillingService(store, zap.NewNop())
	p := completedPayload()
	delete(p, "ended_at")

	require.NoError(t, svc.HandleEvent(context.Background(), event(t, EventSessionCompleted, p)))
	assert.True(t, store.bySession[42].ChargedAt.Equal(time.Date(2025, 6, 2, 10, 45, 0, 0, time.UTC)))
}

func TestHandleEventRejectsMalformedInput(t *testing.T) {
	svc := NewBillingService(newMemStore(), zap.NewNop())

	err := svc.HandleEvent(context.Background(), []byte("{not json"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	p := completedPayload()
	delete(p, "fee_amount")
	err = svc.HandleEvent(context.Background(), event(t, EventSessionCompleted, p))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestHandleEventPropagatesStorageErrors(t *testing.T) {
	store := newMemStore()
	store.err = apperrors.New(apperrors.CodeStorage, "db down")
	svc := NewBillingService(store, zap.NewNop())

	err := svc.HandleEvent(context.Background(), event(t, EventSessionCompleted, completedPayload()))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorage))
}

func TestUnitPrice(t *testing.T) {
	assert.InDelta(t, 1.33, UnitPrice(3, 4), 1e-9)
	assert.InDelta(t, 0.0, UnitPrice(0, 4), 1e-9)
	assert.InDelta(t, 0.0, UnitPrice(-1, 4), 1e-9)
}

func TestTransactionsForUserRequiresUser(t *testing.T) {
	svc := NewBillingService(newMemStore(), zap.NewNop())
	_, err := svc.TransactionsForUser(context.Background(), 0, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

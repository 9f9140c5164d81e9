package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/billing-service/internal/models"
)

// EventSessionCompleted is the only event type that produces a ledger entry.
const EventSessionCompleted = "SessionCompleted"

// TransactionStore persists ledger entries.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) (bool, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
}

// envelope mirrors the charging session event as written to Kafka.
type envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	SessionID int64      `json:"session_id"`
	UserID    int64      `json:"user_id"`
	PileID    int64      `json:"pile_id"`
	EndedAt   *time.Time `json:"ended_at"`
	EnergyKWh *float64   `json:"energy_kwh"`
	FeeAmount *float64   `json:"fee_amount"`
}

// BillingService settles completed charging sessions.
type BillingService struct {
	store  TransactionStore
	logger *zap.Logger
}

// NewBillingService builds service.
func NewBillingService(store TransactionStore, logger *zap.Logger) *BillingService {
	return &BillingService{store: store, logger: logger}
}

// HandleEvent settles one raw session event. Events of other types are
// ignored; malformed events return a validation error.
func (s *BillingService) HandleEvent(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "decode session event")
	}
	if env.EventType != EventSessionCompleted {
		return nil
	}
	var p sessionPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "decode session payload")
	}
	if p.SessionID <= 0 || p.UserID <= 0 || p.EnergyKWh == nil || p.FeeAmount == nil {
		return apperrors.New(apperrors.CodeValidation, "completed session event is missing billing fields")
	}

	chargedAt := env.OccurredAt
	if p.EndedAt != nil {
		chargedAt = *p.EndedAt
	}
	tx := &models.Transaction{
		SessionID:   p.SessionID,
		UserID:      p.UserID,
		PileID:      p.PileID,
		EnergyKWh:   *p.EnergyKWh,
		PricePerKWh: UnitPrice(*p.EnergyKWh, *p.FeeAmount),
		Amount:      *p.FeeAmount,
		Status:      models.TransactionSettled,
		EventID:     env.EventID,
		ChargedAt:   chargedAt,
	}
	created, err := s.store.Create(ctx, tx)
	if err != nil {
		return err
	}
	if !created {
		s.logger.Info("session already settled", zap.Int64("session_id", p.SessionID))
		return nil
	}
	s.logger.Info("billing transaction created",
		zap.Int64("session_id", tx.SessionID),
		zap.Int64("user_id", tx.UserID),
		zap.Float64("energy_kwh", tx.EnergyKWh),
		zap.Float64("amount", tx.Amount),
	)
	return nil
}

// UnitPrice is amount per kWh rounded to cents, zero when no energy was drawn.
func UnitPrice(energyKWh, amount float64) float64 {
	energy := decimal.NewFromFloat(energyKWh)
	if !energy.IsPositive() {
		return 0
	}
	return decimal.NewFromFloat(amount).DivRound(energy, 2).InexactFloat64()
}

// TransactionsForUser returns history for given user.
func (s *BillingService) TransactionsForUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if userID <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	return s.store.ListByUser(ctx, userID, limit)
}

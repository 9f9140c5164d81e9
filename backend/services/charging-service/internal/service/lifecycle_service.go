package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

const (
	energyPlaces = 3
	feePlaces    = 2
)

var secondsPerHour = decimal.NewFromInt(3600)

// LifecycleService starts and stops charging on reserved sessions.
type LifecycleService struct {
	engine
	sweeper *Sweeper
}

// NewLifecycleService builds the lifecycle controller.
func NewLifecycleService(store repository.Store, sweeper *Sweeper, opts Options) *LifecycleService {
	return &LifecycleService{engine: newEngine(store, opts), sweeper: sweeper}
}

// Start begins charging on a reserved session.
func (s *LifecycleService) Start(ctx context.Context, actor Actor, sessionID int64) (*models.Session, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sessionID, transitionSpec{
		from:  models.SessionReserved,
		verb:  "start",
		event: models.EventSessionStarted,
		apply: func(session *models.Session, pile *models.Pile, now time.Time) error {
			if pile.Status == models.PileOffline {
				return apperrors.New(apperrors.CodeConflict, "pile is offline")
			}
			startedAt := now
			session.StartedAt = &startedAt
			session.Status = models.SessionOngoing
			return nil
		},
	})
}

// Stop completes an ongoing session and bills it.
func (s *LifecycleService) Stop(ctx context.Context, actor Actor, sessionID int64) (*models.Session, error) {
	return s.transition(ctx, actor, sessionID, transitionSpec{
		from:  models.SessionOngoing,
		verb:  "stop",
		event: models.EventSessionCompleted,
		apply: func(session *models.Session, pile *models.Pile, now time.Time) error {
			endedAt := now
			started := now
			if session.StartedAt != nil {
				started = *session.StartedAt
			}
			energy, fee := Bill(endedAt.Sub(started), pile.PowerKW, pile.FeeRate)
			session.EndedAt = &endedAt
			session.EnergyKWh = &energy
			session.FeeAmount = &fee
			session.Status = models.SessionCompleted
			return nil
		},
	})
}

// Bill returns energy in kWh rounded to 3 places and the fee rounded to 2,
// both half away from zero.
func Bill(elapsed time.Duration, powerKW, feeRate float64) (energyKWh, fee float64) {
	if elapsed < 0 {
		elapsed = 0
	}
	hours := decimal.NewFromInt(elapsed.Milliseconds()).
		Div(decimal.NewFromInt(1000)).
		Div(secondsPerHour)
	energy := hours.Mul(decimal.NewFromFloat(powerKW)).Round(energyPlaces)
	amount := energy.Mul(decimal.NewFromFloat(feeRate)).Round(feePlaces)
	return energy.InexactFloat64(), amount.InexactFloat64()
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

// AreaDirectory reads charging areas from the location registry.
type AreaDirectory interface {
	ListChargingAreas(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
}

// CreatePileInput describes a new pile.
type CreatePileInput struct {
	LocationID int64
	Name       string
	Connector  string
	PowerKW    float64
	FeeRate    float64
}

// UpdatePileInput is a partial pile update. Nil fields are left untouched.
type UpdatePileInput struct {
	Name      *string
	Connector *string
	PowerKW   *float64
	FeeRate   *float64
	Offline   *bool
}

// PileService manages piles and exposes read models around them.
type PileService struct {
	engine
	areas AreaDirectory
}

// NewPileService builds the pile service.
func NewPileService(store repository.Store, areas AreaDirectory, opts Options) *PileService {
	return &PileService{engine: newEngine(store, opts), areas: areas}
}

// ListAreas returns charging areas.
func (s *PileService) ListAreas(ctx context.Context) ([]models.Location, error) {
	return s.areas.ListChargingAreas(ctx)
}

// ListPiles returns the piles of a charging area.
func (s *PileService) ListPiles(ctx context.Context, locationID int64) ([]models.Pile, error) {
	if locationID <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "location_id is required")
	}
	return s.store.ListPiles(ctx, locationID)
}

// GetPile returns a pile.
func (s *PileService) GetPile(ctx context.Context, id int64) (*models.Pile, error) {
	return s.store.GetPile(ctx, id)
}

// CreatePile registers a pile in a charging area.
func (s *PileService) CreatePile(ctx context.Context, input CreatePileInput) (*models.Pile, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Connector = strings.TrimSpace(input.Connector)
	if input.Name == "" || input.Connector == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "name and connector are required")
	}
	if err := validateRates(input.PowerKW, input.FeeRate); err != nil {
		return nil, err
	}
	location, err := s.areas.GetLocation(ctx, input.LocationID)
	if err != nil {
		return nil, err
	}
	if location.LocationType != models.LocationTypeCharging {
		return nil, apperrors.New(apperrors.CodeValidation, "location is not a charging area")
	}

	pile := &models.Pile{
		LocationID: input.LocationID,
		Name:       input.Name,
		Connector:  input.Connector,
		PowerKW:    input.PowerKW,
		FeeRate:    input.FeeRate,
		Status:     models.PileAvailable,
	}
	if err := s.store.CreatePile(ctx, pile); err != nil {
		return nil, err
	}
	s.logger().Info("pile created", zap.Int64("pile_id", pile.ID), zap.Int64("location_id", pile.LocationID))
	return pile, nil
}

// UpdatePile applies a partial update. Offline is the only way to take a pile
// out of, or back into, service.
func (s *PileService) UpdatePile(ctx context.Context, id int64, input UpdatePileInput) (*models.Pile, error) {
	var (
		updated *models.Pile
		event   models.SessionEvent
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		pile, err := tx.LockPile(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			if pile.Name = strings.TrimSpace(*input.Name); pile.Name == "" {
				return apperrors.New(apperrors.CodeValidation, "name must not be empty")
			}
		}
		if input.Connector != nil {
			if pile.Connector = strings.TrimSpace(*input.Connector); pile.Connector == "" {
				return apperrors.New(apperrors.CodeValidation, "connector must not be empty")
			}
		}
		if input.PowerKW != nil {
			pile.PowerKW = *input.PowerKW
		}
		if input.FeeRate != nil {
			pile.FeeRate = *input.FeeRate
		}
		if err := validateRates(pile.PowerKW, pile.FeeRate); err != nil {
			return err
		}
		if input.Offline != nil {
			active, err := tx.ListSessions(ctx, models.SessionFilter{
				PileID:   pile.ID,
				Statuses: models.ActiveStatuses,
			})
			if err != nil {
				return err
			}
			if *input.Offline {
				if len(active) > 0 {
					return apperrors.New(apperrors.CodeConflict, "pile has active sessions")
				}
				pile.Status = models.PileOffline
			} else {
				pile.Status = models.DerivePileStatus(models.PileAvailable, active)
			}
		}
		if err := tx.UpdatePile(ctx, pile); err != nil {
			return err
		}
		updated = pile
		event = newEvent(models.EventPileUpdated, nil, pile, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, []models.SessionEvent{event})
	s.logger().Info("pile updated", zap.Int64("pile_id", updated.ID), zap.String("status", string(updated.Status)))
	return updated, nil
}

// DeletePile removes a pile together with its sessions.
func (s *PileService) DeletePile(ctx context.Context, id int64) error {
	if err := s.store.DeletePile(ctx, id); err != nil {
		return err
	}
	s.logger().Info("pile deleted", zap.Int64("pile_id", id))
	return nil
}

// ChargingLogs returns the most recent sessions across all piles.
func (s *PileService) ChargingLogs(ctx context.Context) ([]models.Session, error) {
	return s.store.ListSessions(ctx, models.SessionFilter{
		NewestFirst: true,
		Limit:       defaultLogsLimit,
	})
}

// GetSession returns a session visible to the actor.
func (s *PileService) GetSession(ctx context.Context, actor Actor, id int64) (*models.Session, error) {
	if actor.UserID <= 0 {
		return nil, errAnonymous
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.authorize(session.UserID); err != nil {
		return nil, err
	}
	return session, nil
}

func validateRates(powerKW, feeRate float64) error {
	if powerKW <= 0 {
		return apperrors.New(apperrors.CodeValidation, "power_kw must be greater than 0")
	}
	if feeRate < 0 {
		return apperrors.New(apperrors.CodeValidation, "fee_rate must not be negative")
	}
	return nil
}

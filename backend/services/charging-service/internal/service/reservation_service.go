package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

// VehicleLookup reads the vehicle registry.
type VehicleLookup interface {
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
}

// IdempotencyStore remembers the session created for a client supplied key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID int64, key string) (int64, bool, error)
	Remember(ctx context.Context, userID int64, key string, sessionID int64) error
}

// ReserveInput is a reservation request.
type ReserveInput struct {
	UserID         int64
	PileID         int64
	VehicleID      int64
	Date           string
	StartTime      string
	EndTime        string
	IdempotencyKey string
}

// ReservationService books and cancels pile time windows.
type ReservationService struct {
	engine
	vehicles    VehicleLookup
	sweeper     *Sweeper
	idempotency IdempotencyStore
}

// NewReservationService builds the reservation engine. idempotency may be nil.
func NewReservationService(
	store repository.Store,
	vehicles VehicleLookup,
	sweeper *Sweeper,
	idempotency IdempotencyStore,
	opts Options,
) *ReservationService {
	return &ReservationService{
		engine:      newEngine(store, opts),
		vehicles:    vehicles,
		sweeper:     sweeper,
		idempotency: idempotency,
	}
}

// Reserve books [start, end) on the pile for the user's vehicle.
func (s *ReservationService) Reserve(ctx context.Context, actor Actor, input ReserveInput) (*models.Session, error) {
	session, err := s.reserve(ctx, actor, input)
	switch {
	case err == nil:
		s.opts.Recorder.RecordReservation(OutcomeCreated)
	case apperrors.HasCode(err, apperrors.CodeConflict):
		s.opts.Recorder.RecordReservation(OutcomeConflict)
	case apperrors.HasCode(err, apperrors.CodeStorage), apperrors.HasCode(err, apperrors.CodeInternal):
		s.opts.Recorder.RecordReservation(OutcomeError)
	default:
		s.opts.Recorder.RecordReservation(OutcomeRejected)
	}
	return session, err
}

func (s *ReservationService) reserve(ctx context.Context, actor Actor, input ReserveInput) (*models.Session, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}

	if actor.UserID <= 0 {
		return nil, errAnonymous
	}
	userID, err := actor.ResolveUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if userID <= 0 || input.PileID <= 0 || input.VehicleID <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "user_id, pile_id and vehicle_id are required")
	}

	window, err := ParseWindow(input.Date, input.StartTime, input.EndTime, s.opts.Location)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		existing := s.replay(ctx, userID, key)
		if existing != nil {
			if err := matchReplay(existing, input, window); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}
	now := s.now()
	if !window.From.After(now) {
		return nil, apperrors.New(apperrors.CodeValidation, "reservation must start in the future")
	}

	vehicle, err := s.vehicles.GetVehicle(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.OwnerID != userID {
		return nil, apperrors.New(apperrors.CodeNotFound, "vehicle not found for user")
	}

	session := &models.Session{
		UserID:          userID,
		PileID:          input.PileID,
		VehicleID:       input.VehicleID,
		ReservationDate: window.Date,
		StartTime:       window.Start,
		EndTime:         window.End,
		ReservedFrom:    window.From,
		ReservedUntil:   window.Until,
		Status:          models.SessionReserved,
		CreatedAt:       now,
	}

	var event models.SessionEvent
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		pile, err := tx.LockPile(ctx, input.PileID)
		if err != nil {
			return err
		}
		if pile.Status == models.PileOffline {
			return apperrors.New(apperrors.CodeConflict, "pile is offline")
		}

		overlapping, err := tx.ListSessions(ctx, models.SessionFilter{
			PileID:       pile.ID,
			Statuses:     models.ActiveStatuses,
			OverlapFrom:  window.From,
			OverlapUntil: window.Until,
			Limit:        1,
		})
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return apperrors.New(apperrors.CodeConflict, "time slot overlaps an existing reservation").
				WithDetails(map[string]any{"session_id": overlapping[0].ID})
		}

		if err := tx.CreateSession(ctx, session); err != nil {
			return err
		}
		if err := refreshPileStatus(ctx, tx, pile); err != nil {
			return err
		}
		session.PileName = pile.Name
		event = newEvent(models.EventSessionReserved, session, pile, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, []models.SessionEvent{event})
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, userID, key, session.ID); err != nil {
			s.logger().Warn("failed to store idempotency key", zap.Error(err), zap.Int64("session_id", session.ID))
		}
	}
	s.logger().Info("session reserved",
		zap.Int64("session_id", session.ID),
		zap.Int64("pile_id", session.PileID),
		zap.Int64("user_id", session.UserID),
		zap.Time("from", session.ReservedFrom),
		zap.Time("until", session.ReservedUntil),
	)
	return session, nil
}

func (s *ReservationService) replay(ctx context.Context, userID int64, key string) *models.Session {
	id, ok, err := s.idempotency.Lookup(ctx, userID, key)
	if err != nil {
		s.logger().Warn("idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil
	}
	return session
}

// matchReplay rejects a reused idempotency key whose stored session no longer
// answers the request.
func matchReplay(existing *models.Session, input ReserveInput, window Window) error {
	if existing.PileID != input.PileID || existing.VehicleID != input.VehicleID ||
		!existing.ReservedFrom.Equal(window.From) || !existing.ReservedUntil.Equal(window.Until) {
		return apperrors.New(apperrors.CodeConflict, "idempotency key reused with different reservation")
	}
	if existing.Status == models.SessionCancelled {
		return apperrors.Newf(apperrors.CodeConflict, "idempotency key refers to a cancelled reservation (%s)", existing.CancelReason)
	}
	return nil
}

// Cancel releases a reserved session.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, sessionID int64) (*models.Session, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, sessionID, transitionSpec{
		from:  models.SessionReserved,
		verb:  "cancel",
		event: models.EventSessionCancelled,
		apply: func(session *models.Session, _ *models.Pile, _ time.Time) error {
			session.Status = models.SessionCancelled
			session.CancelReason = models.CancelReasonUser
			if actor.IsAdmin() && actor.UserID != session.UserID {
				session.CancelReason = models.CancelReasonAdmin
			}
			return nil
		},
	})
}

// ListUserSessions returns the user's sessions, newest first.
func (s *ReservationService) ListUserSessions(ctx context.Context, actor Actor, userID int64) ([]models.Session, error) {
	if userID <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "user_id is required")
	}
	if actor.UserID <= 0 {
		return nil, errAnonymous
	}
	if !actor.CanAccess(userID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "cannot list another user's sessions")
	}
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx, models.SessionFilter{
		UserID:      userID,
		NewestFirst: true,
		Limit:       defaultListLimit,
	})
}

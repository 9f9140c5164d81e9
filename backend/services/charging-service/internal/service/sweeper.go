package service

import (
	"context"
	"slices"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

// Sweeper cancels reservations that were never started in time.
type Sweeper struct {
	engine
}

// NewSweeper builds a sweeper.
func NewSweeper(store repository.Store, opts Options) *Sweeper {
	return &Sweeper{engine: newEngine(store, opts)}
}

// Sweep expires every reserved session created more than the stale threshold
// ago and returns how many it cancelled. Running it again is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.opts.StaleAfter)

	stale, err := s.store.ListSessions(ctx, models.SessionFilter{
		Statuses:      []models.SessionStatus{models.SessionReserved},
		CreatedBefore: cutoff,
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	byPile := make(map[int64][]int64)
	for _, session := range stale {
		byPile[session.PileID] = append(byPile[session.PileID], session.ID)
	}
	pileIDs := make([]int64, 0, len(byPile))
	for id := range byPile {
		pileIDs = append(pileIDs, id)
	}
	slices.Sort(pileIDs)

	var events []models.SessionEvent
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		events = events[:0]
		for _, pileID := range pileIDs {
			pile, err := tx.LockPile(ctx, pileID)
			if err != nil {
				if apperrors.HasCode(err, apperrors.CodeNotFound) {
					continue
				}
				return err
			}

			var expired []*models.Session
			for _, sessionID := range byPile[pileID] {
				session, err := tx.LockSession(ctx, sessionID)
				if err != nil {
					if apperrors.HasCode(err, apperrors.CodeNotFound) {
						continue
					}
					return err
				}
				if session.Status != models.SessionReserved || !session.CreatedAt.Before(cutoff) {
					continue
				}
				session.Status = models.SessionCancelled
				session.CancelReason = models.CancelReasonExpired
				if err := tx.UpdateSession(ctx, session); err != nil {
					return err
				}
				expired = append(expired, session)
			}
			if len(expired) == 0 {
				continue
			}
			if err := refreshPileStatus(ctx, tx, pile); err != nil {
				return err
			}
			for _, session := range expired {
				events = append(events, newEvent(models.EventSessionExpired, session, pile, now))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(events) > 0 {
		s.opts.Recorder.RecordExpired(len(events))
		s.publish(ctx, events)
		s.logger().Info("expired stale reservations", zap.Int("count", len(events)))
	}
	return len(events), nil
}

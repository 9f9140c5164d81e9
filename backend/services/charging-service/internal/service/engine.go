package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

const (
	DefaultStaleAfter = 10 * time.Minute
	DefaultSlotSize   = 20 * time.Minute
	DefaultTimeZone   = "Asia/Shanghai"
	defaultLogsLimit  = 100
	defaultListLimit  = 200
)

// EventSink receives committed session and pile changes.
type EventSink interface {
	Publish(ctx context.Context, event models.SessionEvent)
}

// Recorder collects engine metrics.
type Recorder interface {
	RecordReservation(outcome string)
	RecordExpired(n int)
	RecordTransition(to models.SessionStatus)
}

// Reservation outcomes reported to Recorder.
const (
	OutcomeCreated  = "created"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Options configures the engine services. Zero fields take defaults.
type Options struct {
	Clock      func() time.Time
	Location   *time.Location
	StaleAfter time.Duration
	SlotSize   time.Duration
	Events     EventSink
	Recorder   Recorder
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		if loc, err := time.LoadLocation(DefaultTimeZone); err == nil {
			o.Location = loc
		} else {
			o.Location = time.UTC
		}
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.SlotSize <= 0 || (24*time.Hour)%o.SlotSize != 0 {
		o.SlotSize = DefaultSlotSize
	}
	if o.Events == nil {
		o.Events = nopSink{}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type nopSink struct{}

func (nopSink) Publish(context.Context, models.SessionEvent) {}

type nopRecorder struct{}

func (nopRecorder) RecordReservation(string)              {}
func (nopRecorder) RecordExpired(int)                     {}
func (nopRecorder) RecordTransition(models.SessionStatus) {}

// engine holds what every charging service shares.
type engine struct {
	store repository.Store
	opts  Options
}

func newEngine(store repository.Store, opts Options) engine {
	return engine{store: store, opts: opts.withDefaults()}
}

func (e *engine) now() time.Time {
	return e.opts.Clock().In(e.opts.Location)
}

func (e *engine) logger() *zap.Logger {
	return e.opts.Logger
}

// refreshPileStatus recomputes the cached pile status from its active
// sessions. Must run inside the transaction that holds the pile lock.
func refreshPileStatus(ctx context.Context, tx repository.Store, pile *models.Pile) error {
	active, err := tx.ListSessions(ctx, models.SessionFilter{
		PileID:   pile.ID,
		Statuses: models.ActiveStatuses,
	})
	if err != nil {
		return err
	}
	status := models.DerivePileStatus(pile.Status, active)
	if status == pile.Status {
		return nil
	}
	if err := tx.SetPileStatus(ctx, pile.ID, status); err != nil {
		return err
	}
	pile.Status = status
	return nil
}

func newEvent(kind models.SessionEventType, session *models.Session, pile *models.Pile, at time.Time) models.SessionEvent {
	ev := models.SessionEvent{
		Type:       kind,
		PileID:     pile.ID,
		LocationID: pile.LocationID,
		PileStatus: pile.Status,
		At:         at.UTC(),
	}
	if session != nil {
		copied := *session
		ev.Session = &copied
	}
	return ev
}

func (e *engine) publish(ctx context.Context, events []models.SessionEvent) {
	for _, ev := range events {
		e.opts.Events.Publish(ctx, ev)
	}
}

type transitionSpec struct {
	from  models.SessionStatus
	verb  string
	event models.SessionEventType
	apply func(session *models.Session, pile *models.Pile, now time.Time) error
}

// transition moves one session through the state machine under the pile lock.
func (e *engine) transition(ctx context.Context, actor Actor, sessionID int64, spec transitionSpec) (*models.Session, error) {
	if actor.UserID <= 0 {
		return nil, errAnonymous
	}
	current, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "session %d not found", sessionID)
		}
		return nil, err
	}
	if err := actor.authorize(current.UserID); err != nil {
		return nil, err
	}

	var (
		updated *models.Session
		event   models.SessionEvent
	)
	err = e.store.Atomic(ctx, func(tx repository.Store) error {
		pile, err := tx.LockPile(ctx, current.PileID)
		if err != nil {
			return err
		}
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return apperrors.Newf(apperrors.CodeInvalidState, "session %d not found", sessionID)
			}
			return err
		}
		if session.Status != spec.from {
			return apperrors.Newf(apperrors.CodeInvalidState, "cannot %s a %s session", spec.verb, session.Status)
		}

		now := e.now()
		if err := spec.apply(session, pile, now); err != nil {
			return err
		}
		if err := tx.UpdateSession(ctx, session); err != nil {
			return err
		}
		if err := refreshPileStatus(ctx, tx, pile); err != nil {
			return err
		}
		updated = session
		event = newEvent(spec.event, session, pile, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.opts.Recorder.RecordTransition(updated.Status)
	e.publish(ctx, []models.SessionEvent{event})
	e.logger().Info("session transition",
		zap.Int64("session_id", updated.ID),
		zap.Int64("pile_id", updated.PileID),
		zap.String("status", string(updated.Status)),
		zap.String("pile_status", string(event.PileStatus)),
	)
	return updated, nil
}

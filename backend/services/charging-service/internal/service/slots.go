package service

import (
	"context"
	"iter"
	"time"

	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

// SlotStatus is the availability of one calendar bucket.
type SlotStatus string

const (
	SlotFree     SlotStatus = "free"
	SlotReserved SlotStatus = "reserved"
	SlotMine     SlotStatus = "mine"
	SlotOccupied SlotStatus = "occupied"
)

// Slot describes one bucket of a pile's day.
type Slot struct {
	Label         string     `json:"slot"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Status        SlotStatus `json:"status"`
	SessionID     *int64     `json:"session_id"`
	SessionUserID *int64     `json:"session_user_id"`
}

// Calendar is a pile's bucketed day. All may be ranged over repeatedly.
type Calendar struct {
	PileID   int64
	Date     string
	day      time.Time
	size     time.Duration
	now      time.Time
	userID   int64
	sessions []models.Session
}

// NewCalendar builds a calendar for the day starting at dayStart from the
// sessions overlapping it.
func NewCalendar(pileID int64, dayStart time.Time, size time.Duration, now time.Time, userID int64, sessions []models.Session) *Calendar {
	if size < time.Minute || (24*time.Hour)%size != 0 {
		size = DefaultSlotSize
	}
	return &Calendar{
		PileID:   pileID,
		Date:     dayStart.Format(dateLayout),
		day:      dayStart,
		size:     size,
		now:      now,
		userID:   userID,
		sessions: sessions,
	}
}

// All yields the buckets whose end is still in the future, in order.
// Buckets follow the wall clock, so a DST day still has 24h/size of them.
func (c *Calendar) All() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		y, m, d := c.day.Date()
		loc := c.day.Location()
		minutes := int(c.size / time.Minute)
		count := int(24 * time.Hour / c.size)
		for i := 0; i < count; i++ {
			start := time.Date(y, m, d, 0, i*minutes, 0, 0, loc)
			end := time.Date(y, m, d, 0, (i+1)*minutes, 0, 0, loc)
			if !end.After(start) {
				continue
			}
			if !end.After(c.now) {
				continue
			}
			if !yield(c.slot(start, end)) {
				return
			}
		}
	}
}

// Slots collects All into a slice.
func (c *Calendar) Slots() []Slot {
	out := make([]Slot, 0)
	for slot := range c.All() {
		out = append(out, slot)
	}
	return out
}

func (c *Calendar) slot(start, end time.Time) Slot {
	slot := Slot{
		Label:  start.Format("15:04") + "-" + end.Format("15:04"),
		Start:  start,
		End:    end,
		Status: SlotFree,
	}

	var reserved, mine, occupied *models.Session
	for i := range c.sessions {
		session := &c.sessions[i]
		if !session.Overlaps(start, end) {
			continue
		}
		switch {
		case session.Status == models.SessionOngoing || session.Status == models.SessionCompleted:
			if occupied == nil {
				occupied = session
			}
		case session.Status == models.SessionReserved && c.userID != 0 && session.UserID == c.userID:
			if mine == nil {
				mine = session
			}
		case session.Status == models.SessionReserved:
			if reserved == nil {
				reserved = session
			}
		}
	}

	var owner *models.Session
	switch {
	case occupied != nil:
		slot.Status, owner = SlotOccupied, occupied
	case mine != nil:
		slot.Status, owner = SlotMine, mine
	case reserved != nil:
		slot.Status, owner = SlotReserved, reserved
	}
	if owner != nil {
		id, userID := owner.ID, owner.UserID
		slot.SessionID = &id
		slot.SessionUserID = &userID
	}
	return slot
}

// SlotService renders slot calendars.
type SlotService struct {
	engine
	sweeper *Sweeper
}

// NewSlotService builds the calendar reader.
func NewSlotService(store repository.Store, sweeper *Sweeper, opts Options) *SlotService {
	return &SlotService{engine: newEngine(store, opts), sweeper: sweeper}
}

// Calendar builds the slot calendar of a pile for date. userID marks the
// requester's own reservations and may be 0.
func (s *SlotService) Calendar(ctx context.Context, pileID int64, date string, userID int64) (*Calendar, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		return nil, err
	}
	day, err := ParseDate(date, s.opts.Location)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPile(ctx, pileID); err != nil {
		return nil, err
	}

	y, m, d := day.Date()
	dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
	sessions, err := s.store.ListSessions(ctx, models.SessionFilter{
		PileID: pileID,
		Statuses: []models.SessionStatus{
			models.SessionReserved,
			models.SessionOngoing,
			models.SessionCompleted,
		},
		OverlapFrom:  day,
		OverlapUntil: dayEnd,
	})
	if err != nil {
		return nil, err
	}

	return NewCalendar(pileID, day, s.opts.SlotSize, s.now(), userID, sessions), nil
}

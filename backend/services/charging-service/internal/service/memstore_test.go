package service

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
)

type memData struct {
	piles       map[int64]models.Pile
	sessions    map[int64]models.Session
	nextPile    int64
	nextSession int64
}

func (d *memData) clone() *memData {
	return &memData{
		piles:       maps.Clone(d.piles),
		sessions:    maps.Clone(d.sessions),
		nextPile:    d.nextPile,
		nextSession: d.nextSession,
	}
}

// memStore is an in-memory Store. Transactions are serialised by one mutex
// and roll back to a snapshot on error.
type memStore struct {
	mu   *sync.Mutex
	data **memData
	inTx bool
}

func newMemStore() *memStore {
	data := &memData{
		piles:    map[int64]models.Pile{},
		sessions: map[int64]models.Session{},
	}
	return &memStore{mu: &sync.Mutex{}, data: &data}
}

func (m *memStore) with(fn func(d *memData) error) error {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(*m.data)
}

func (m *memStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := (*m.data).clone()
	if err := fn(&memStore{mu: m.mu, data: m.data, inTx: true}); err != nil {
		*m.data = snapshot
		return err
	}
	return nil
}

func notFound(what string) error {
	return apperrors.Newf(apperrors.CodeNotFound, "%s not found", what)
}

func (m *memStore) GetPile(_ context.Context, id int64) (*models.Pile, error) {
	var out *models.Pile
	err := m.with(func(d *memData) error {
		p, ok := d.piles[id]
		if !ok {
			return notFound("charging pile")
		}
		out = &p
		return nil
	})
	return out, err
}

func (m *memStore) LockPile(ctx context.Context, id int64) (*models.Pile, error) {
	return m.GetPile(ctx, id)
}

func (m *memStore) ListPiles(_ context.Context, locationID int64) ([]models.Pile, error) {
	out := make([]models.Pile, 0)
	err := m.with(func(d *memData) error {
		for _, p := range d.piles {
			if locationID == 0 || p.LocationID == locationID {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Pile) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (m *memStore) CreatePile(_ context.Context, pile *models.Pile) error {
	return m.with(func(d *memData) error {
		d.nextPile++
		pile.ID = d.nextPile
		pile.UpdatedAt = time.Now()
		d.piles[pile.ID] = *pile
		return nil
	})
}

func (m *memStore) UpdatePile(_ context.Context, pile *models.Pile) error {
	return m.with(func(d *memData) error {
		if _, ok := d.piles[pile.ID]; !ok {
			return notFound("charging pile")
		}
		d.piles[pile.ID] = *pile
		return nil
	})
}

func (m *memStore) SetPileStatus(_ context.Context, id int64, status models.PileStatus) error {
	return m.with(func(d *memData) error {
		p, ok := d.piles[id]
		if !ok {
			return notFound("charging pile")
		}
		p.Status = status
		d.piles[id] = p
		return nil
	})
}

func (m *memStore) DeletePile(_ context.Context, id int64) error {
	return m.with(func(d *memData) error {
		if _, ok := d.piles[id]; !ok {
			return notFound("charging pile")
		}
		delete(d.piles, id)
		for sid, s := range d.sessions {
			if s.PileID == id {
				delete(d.sessions, sid)
			}
		}
		return nil
	})
}

func (m *memStore) GetSession(_ context.Context, id int64) (*models.Session, error) {
	var out *models.Session
	err := m.with(func(d *memData) error {
		s, ok := d.sessions[id]
		if !ok {
			return notFound("charging session")
		}
		s.PileName = d.piles[s.PileID].Name
		out = &s
		return nil
	})
	return out, err
}

func (m *memStore) LockSession(ctx context.Context, id int64) (*models.Session, error) {
	return m.GetSession(ctx, id)
}

func (m *memStore) ListSessions(_ context.Context, filter models.SessionFilter) ([]models.Session, error) {
	out := make([]models.Session, 0)
	err := m.with(func(d *memData) error {
		for _, s := range d.sessions {
			if filter.Matches(&s) {
				s.PileName = d.piles[s.PileID].Name
				out = append(out, s)
			}
		}
		return nil
	})
	if filter.NewestFirst {
		slices.SortFunc(out, func(a, b models.Session) int { return cmp.Compare(b.ID, a.ID) })
	} else {
		slices.SortFunc(out, func(a, b models.Session) int {
			if a.PileID != b.PileID {
				return cmp.Compare(a.PileID, b.PileID)
			}
			if c := a.ReservedFrom.Compare(b.ReservedFrom); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func (m *memStore) CreateSession(_ context.Context, session *models.Session) error {
	return m.with(func(d *memData) error {
		if _, ok := d.piles[session.PileID]; !ok {
			return notFound("referenced record")
		}
		// Mirrors the exclusion constraint on active sessions.
		if session.Status.Active() {
			for _, other := range d.sessions {
				if other.PileID == session.PileID && other.Status.Active() &&
					other.Overlaps(session.ReservedFrom, session.ReservedUntil) {
					return apperrors.New(apperrors.CodeConflict, "time slot overlaps an existing reservation")
				}
			}
		}
		d.nextSession++
		session.ID = d.nextSession
		session.UpdatedAt = session.CreatedAt
		d.sessions[session.ID] = *session
		return nil
	})
}

func (m *memStore) UpdateSession(_ context.Context, session *models.Session) error {
	return m.with(func(d *memData) error {
		if _, ok := d.sessions[session.ID]; !ok {
			return notFound("charging session")
		}
		stored := *session
		stored.PileName = ""
		d.sessions[session.ID] = stored
		return nil
	})
}

// seedSession stores a session as is, bypassing the engine.
func (m *memStore) seedSession(s models.Session) int64 {
	var id int64
	_ = m.with(func(d *memData) error {
		d.nextSession++
		s.ID = d.nextSession
		d.sessions[s.ID] = s
		id = s.ID
		return nil
	})
	return id
}

func (m *memStore) seedPile(p models.Pile) int64 {
	_ = m.CreatePile(context.Background(), &p)
	return p.ID
}

func (m *memStore) pile(id int64) models.Pile {
	p, _ := m.GetPile(context.Background(), id)
	return *p
}

func (m *memStore) session(id int64) models.Session {
	s, _ := m.GetSession(context.Background(), id)
	return *s
}

var _ repository.Store = (*memStore)(nil)

type fakeVehicles map[int64]models.Vehicle

func (f fakeVehicles) GetVehicle(_ context.Context, id int64) (*models.Vehicle, error) {
	v, ok := f[id]
	if !ok {
		return nil, notFound("vehicle")
	}
	return &v, nil
}

type fakeAreas map[int64]models.Location

func (f fakeAreas) ListChargingAreas(context.Context) ([]models.Location, error) {
	out := make([]models.Location, 0, len(f))
	for _, l := range f {
		if l.LocationType == models.LocationTypeCharging {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b models.Location) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f fakeAreas) GetLocation(_ context.Context, id int64) (*models.Location, error) {
	l, ok := f[id]
	if !ok {
		return nil, notFound("location")
	}
	return &l, nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]int64
}

func (f *fakeIdempotency) k(userID int64, key string) string {
	return strconv.FormatInt(userID, 10) + "/" + key
}

func (f *fakeIdempotency) Lookup(_ context.Context, userID int64, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[f.k(userID, key)]
	return id, ok, nil
}

func (f *fakeIdempotency) Remember(_ context.Context, userID int64, key string, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = map[string]int64{}
	}
	f.keys[f.k(userID, key)] = sessionID
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (r *recordingSink) Publish(_ context.Context, ev models.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []models.SessionEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SessionEventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingRecorder struct {
	mu          sync.Mutex
	outcomes    map[string]int
	expired     int
	transitions map[models.SessionStatus]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, transitions: map[models.SessionStatus]int{}}
}

func (c *countingRecorder) RecordReservation(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
}

func (c *countingRecorder) RecordExpired(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expired += n
}

func (c *countingRecorder) RecordTransition(to models.SessionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions[to]++
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

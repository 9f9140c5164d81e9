package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusev/backend/libs/db"
	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/migrate"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/repository"
	"campusev/backend/services/charging-service/internal/service"
	"campusev/backend/services/charging-service/migrations"
)

// CHARGING_TEST_POSTGRES_DSN points at a disposable database; the schema is
// migrated up and every test seeds and removes its own rows.
const dsnEnv = "CHARGING_TEST_POSTGRES_DSN"

var campusZone = time.FixedZone("CST", 8*60*60)

type seed struct {
	conn      *sql.DB
	repo      *repository.ChargingRepository
	userID    int64
	otherID   int64
	vehicleID int64
	otherCar  int64
	pileID    int64
}

func newSeed(t *testing.T) *seed {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	conn, err := db.NewPostgresDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	require.NoError(t, migrate.Run(ctx, conn, migrations.Source(), "up"))

	tag := fmt.Sprintf("%09d", time.Now().UnixNano()%1_000_000_000)
	s := &seed{conn: conn, repo: repository.NewChargingRepository(conn)}

	insert := func(query string, args ...any) int64 {
		var id int64
		require.NoError(t, conn.QueryRowContext(ctx, query, args...).Scan(&id))
		return id
	}
	s.userID = insert(`INSERT INTO users (school_id, role) VALUES ($1, 'student') RETURNING id`, "u"+tag)
	s.otherID = insert(`INSERT INTO users (school_id, role) VALUES ($1, 'staff') RETURNING id`, "o"+tag)
	s.vehicleID = insert(`INSERT INTO electric_vehicles (owner_id, brand, model, plate_number) VALUES ($1, 'BYD', 'Dolphin', $2) RETURNING id`, s.userID, "P"+tag)
	s.otherCar = insert(`INSERT INTO electric_vehicles (owner_id, brand, model, plate_number) VALUES ($1, 'NIO', 'ET5', $2) RETURNING id`, s.otherID, "Q"+tag)
	locationID := insert(`INSERT INTO campus_locations (name, latitude, longitude, location_type) VALUES ($1, 30.1, 104.2, 'charging') RETURNING id`, "Library "+tag)

	pile := &models.Pile{LocationID: locationID, Name: "A-01", Connector: "Type2", PowerKW: 7, FeeRate: 1.2, Status: models.PileAvailable}
	require.NoError(t, s.repo.CreatePile(ctx, pile))
	s.pileID = pile.ID

	t.Cleanup(func() {
		_, _ = conn.ExecContext(ctx, `DELETE FROM charging_piles WHERE id = $1`, s.pileID)
		_, _ = conn.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, []int64{s.userID, s.otherID})
		_, _ = conn.ExecContext(ctx, `DELETE FROM campus_locations WHERE id = $1`, locationID)
	})
	return s
}

func (s *seed) session(t *testing.T, userID, vehicleID int64, from time.Time, d time.Duration, status models.SessionStatus) *models.Session {
	t.Helper()
	session := &models.Session{
		UserID:          userID,
		PileID:          s.pileID,
		VehicleID:       vehicleID,
		ReservationDate: from.In(campusZone).Format("2006-01-02"),
		StartTime:       from.In(campusZone).Format("15:04"),
		EndTime:         from.Add(d).In(campusZone).Format("15:04"),
		ReservedFrom:    from,
		ReservedUntil:   from.Add(d),
		Status:          status,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, s.repo.CreateSession(context.Background(), session))
	return session
}

func TestChargingRepositorySessionNullsRoundTrip(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	from := time.Date(2030, 1, 15, 10, 0, 0, 0, campusZone)
	created := s.session(t, s.userID, s.vehicleID, from, time.Hour, models.SessionReserved)

	got, err := s.repo.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2030-01-15", got.ReservationDate)
	assert.Equal(t, "10:00", got.StartTime)
	assert.True(t, from.Equal(got.ReservedFrom))
	assert.Equal(t, "A-01", got.PileName)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.EndedAt)
	assert.Nil(t, got.EnergyKWh)
	assert.Nil(t, got.FeeAmount)
	assert.Empty(t, got.CancelReason)

	started, ended := from, from.Add(90*time.Minute)
	energy, fee := 10.5, 12.6
	got.Status = models.SessionCompleted
	got.StartedAt, got.EndedAt = &started, &ended
	got.EnergyKWh, got.FeeAmount = &energy, &fee
	require.NoError(t, s.repo.UpdateSession(ctx, got))

	done, err := s.repo.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, done.Status)
	require.NotNil(t, done.EnergyKWh)
	require.NotNil(t, done.FeeAmount)
	assert.InDelta(t, 10.5, *done.EnergyKWh, 1e-9)
	assert.InDelta(t, 12.6, *done.FeeAmount, 1e-9)
	assert.Equal(t, 90*time.Minute, done.EndedAt.Sub(*done.StartedAt))
	assert.Empty(t, done.CancelReason, "empty reason is stored as NULL")

	_, err = s.repo.GetSession(ctx, -1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestChargingRepositoryListSessionsFilters(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	day := time.Date(2030, 1, 16, 0, 0, 0, 0, campusZone)

	morning := s.session(t, s.userID, s.vehicleID, day.Add(9*time.Hour), time.Hour, models.SessionReserved)
	noon := s.session(t, s.otherID, s.otherCar, day.Add(12*time.Hour), time.Hour, models.SessionReserved)
	cancelled := s.session(t, s.userID, s.vehicleID, day.Add(12*time.Hour), time.Hour, models.SessionCancelled)

	ids := func(sessions []models.Session) []int64 {
		out := make([]int64, 0, len(sessions))
		for _, ss := range sessions {
			out = append(out, ss.ID)
		}
		return out
	}

	mine, err := s.repo.ListSessions(ctx, models.SessionFilter{UserID: s.userID, NewestFirst: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{cancelled.ID, morning.ID}, ids(mine))

	latest, err := s.repo.ListSessions(ctx, models.SessionFilter{UserID: s.userID, NewestFirst: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{cancelled.ID}, ids(latest))

	active, err := s.repo.ListSessions(ctx, models.SessionFilter{PileID: s.pileID, Statuses: models.ActiveStatuses})
	require.NoError(t, err)
	assert.Equal(t, []int64{morning.ID, noon.ID}, ids(active), "ordered by window")

	overlapping, err := s.repo.ListSessions(ctx, models.SessionFilter{
		PileID:       s.pileID,
		Statuses:     models.ActiveStatuses,
		OverlapFrom:  day.Add(12*time.Hour + 30*time.Minute),
		OverlapUntil: day.Add(14 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{noon.ID}, ids(overlapping))

	touching, err := s.repo.ListSessions(ctx, models.SessionFilter{
		PileID:       s.pileID,
		OverlapFrom:  day.Add(10 * time.Hour),
		OverlapUntil: day.Add(12 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, touching, "half-open windows that only touch do not overlap")

	old, err := s.repo.ListSessions(ctx, models.SessionFilter{PileID: s.pileID, CreatedBefore: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestChargingRepositoryOverlapMapsToConflict(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()
	from := time.Date(2030, 1, 17, 10, 0, 0, 0, campusZone)
	s.session(t, s.userID, s.vehicleID, from, time.Hour, models.SessionReserved)

	clash := &models.Session{
		UserID:          s.otherID,
		PileID:          s.pileID,
		VehicleID:       s.otherCar,
		ReservationDate: "2030-01-17",
		StartTime:       "10:30",
		EndTime:         "11:30",
		ReservedFrom:    from.Add(30 * time.Minute),
		ReservedUntil:   from.Add(90 * time.Minute),
		Status:          models.SessionReserved,
		CreatedAt:       time.Now(),
	}
	err := s.repo.CreateSession(ctx, clash)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
	assert.Equal(t, "23P01", db.PgCode(err))

	clash.Status = models.SessionCancelled
	require.NoError(t, s.repo.CreateSession(ctx, clash), "inactive rows are outside the constraint")

	missing := *clash
	missing.VehicleID = -1
	missing.Status = models.SessionCancelled
	err = s.repo.CreateSession(ctx, &missing)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestChargingRepositoryLockPileSerializesTransactions(t *testing.T) {
	s := newSeed(t)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.repo.Atomic(ctx, func(tx repository.Store) error {
			if _, err := tx.LockPile(ctx, s.pileID); err != nil {
				close(locked)
				return err
			}
			close(locked)
			<-release
			return tx.SetPileStatus(ctx, s.pileID, models.PileReserved)
		})
	}()
	<-locked

	secondDone := make(chan *models.Pile, 1)
	go func() {
		var seen *models.Pile
		_ = s.repo.Atomic(ctx, func(tx repository.Store) error {
			p, err := tx.LockPile(ctx, s.pileID)
			seen = p
			return err
		})
		secondDone <- seen
	}()

	select {
	case <-secondDone:
		t.Fatal("second transaction acquired the pile lock while the first held it")
	case <-time.After(150 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-firstDone)

	seen := <-secondDone
	require.NotNil(t, seen)
	assert.Equal(t, models.PileReserved, seen.Status, "waiter reads the committed status")

	err := s.repo.Atomic(ctx, func(tx repository.Store) error {
		_, err := tx.LockPile(ctx, -1)
		return err
	})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestConcurrentReservesThroughPostgres(t *testing.T) {
	s := newSeed(t)
	opts := service.Options{Location: campusZone}
	sweeper := service.NewSweeper(s.repo, opts)
	reservations := service.NewReservationService(s.repo, repository.NewVehicleRepository(s.conn), sweeper, nil, opts)

	actors := []struct {
		actor   service.Actor
		vehicle int64
	}{
		{service.Actor{UserID: s.userID, Role: service.RoleStudent}, s.vehicleID},
		{service.Actor{UserID: s.otherID, Role: service.RoleStaff}, s.otherCar},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, a := range actors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reservations.Reserve(context.Background(), a.actor, service.ReserveInput{
				PileID:    s.pileID,
				VehicleID: a.vehicle,
				Date:      "2030-01-18",
				StartTime: "10:00",
				EndTime:   "11:00",
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, conflicts)

	active, err := s.repo.ListSessions(context.Background(), models.SessionFilter{PileID: s.pileID, Statuses: models.ActiveStatuses})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	pile, err := s.repo.GetPile(context.Background(), s.pileID)
	require.NoError(t, err)
	assert.Equal(t, models.PileReserved, pile.Status)
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
)

func TestReserveCreatesSessionAndReservesPile(t *testing.T) {
	f := newFixture(t)

	session := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")

	assert.NotZero(t, session.ID)
	assert.Equal(t, models.SessionReserved, session.Status)
	assert.Equal(t, ownerID, session.UserID)
	assert.Equal(t, "Library A-01", session.PileName)
	assert.Equal(t, f.clock.Now(), session.CreatedAt)
	assert.Equal(t, models.PileReserved, f.store.pile(f.pileID).Status)
	assert.Equal(t, []models.SessionEventType{models.EventSessionReserved}, f.sink.types())
	assert.Equal(t, 1, f.recorder.outcomes[OutcomeCreated])
}

func TestReserveRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")

	_, err := f.reserve.Reserve(context.Background(), other(), ReserveInput{
		PileID: f.pileID, VehicleID: otherCar, Date: tomorrow, StartTime: "10:30", EndTime: "11:30",
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 1, f.recorder.outcomes[OutcomeConflict])

	sessions, err := f.store.ListSessions(context.Background(), models.SessionFilter{PileID: f.pileID})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestReserveAllowsAdjacentWindows(t *testing.T) {
	f := newFixture(t)
	f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")
	f.book(t, other(), otherCar, tomorrow, "11:00", "12:00")
	f.book(t, other(), otherCar, tomorrow, "09:00", "10:00")
}

func TestReserveWraparoundConflictsWithNextMorning(t *testing.T) {
	f := newFixture(t)
	f.book(t, owner(), ownerCar, tomorrow, "23:00", "01:00")

	_, err := f.reserve.Reserve(context.Background(), other(), ReserveInput{
		PileID: f.pileID, VehicleID: otherCar, Date: "2025-06-03", StartTime: "00:30", EndTime: "02:00",
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	f.book(t, other(), otherCar, "2025-06-03", "01:00", "02:00")
}

func TestReserveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]ReserveInput{
		"missing pile":  {VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00"},
		"missing times": {PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow},
		"bad date":      {PileID: f.pileID, VehicleID: ownerCar, Date: "tomorrow", StartTime: "10:00", EndTime: "11:00"},
		"equal times":   {PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "10:00"},
		"in the past":   {PileID: f.pileID, VehicleID: ownerCar, Date: today, StartTime: "07:00", EndTime: "09:00"},
		"starting now":  {PileID: f.pileID, VehicleID: ownerCar, Date: today, StartTime: "08:00", EndTime: "09:00"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.reserve.Reserve(ctx, owner(), in)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
	assert.Equal(t, models.PileAvailable, f.store.pile(f.pileID).Status)
}

func TestReserveNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reserve.Reserve(ctx, owner(), ReserveInput{
		PileID: 999, VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.reserve.Reserve(ctx, owner(), ReserveInput{
		PileID: f.pileID, VehicleID: 42, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.reserve.Reserve(ctx, owner(), ReserveInput{
		PileID: f.pileID, VehicleID: otherCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound, "vehicle of another user")
}

func TestReserveOfflinePileConflicts(t *testing.T) {
	f := newFixture(t)
	offline := true
	_, err := f.piles.UpdatePile(context.Background(), f.pileID, UpdatePileInput{Offline: &offline})
	require.NoError(t, err)

	_, err = f.reserve.Reserve(context.Background(), owner(), ReserveInput{
		PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "offline")
}

func TestReserveIdentityOverridesBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reserve.Reserve(ctx, owner(), ReserveInput{
		UserID: otherID, PileID: f.pileID, VehicleID: otherCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	session, err := f.reserve.Reserve(ctx, admin(), ReserveInput{
		UserID: otherID, PileID: f.pileID, VehicleID: otherCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, otherID, session.UserID)

	_, err = f.reserve.Reserve(ctx, Actor{}, ReserveInput{
		UserID: ownerID, PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "12:00", EndTime: "13:00",
	})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err), "anonymous callers cannot book")
}

func TestAnonymousCallerCannotTouchSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")

	_, err := f.reserve.Cancel(ctx, Actor{}, session.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	_, err = f.lifecycle.Start(ctx, Actor{}, session.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	_, err = f.piles.GetSession(ctx, Actor{}, session.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	_, err = f.reserve.ListUserSessions(ctx, Actor{}, ownerID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	_, err = f.reserve.Cancel(ctx, Actor{Role: RoleAdmin}, session.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err), "a role without a user is not an admin")

	assert.Equal(t, models.SessionReserved, f.store.session(session.ID).Status)
}

func TestReserveIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	in := ReserveInput{
		PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
		IdempotencyKey: "abc-123",
	}

	first, err := f.reserve.Reserve(context.Background(), owner(), in)
	require.NoError(t, err)
	second, err := f.reserve.Reserve(context.Background(), owner(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.sink.types(), 1)
}

func TestReserveIdempotencyKeyRejectsDifferentRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := ReserveInput{
		PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "10:00", EndTime: "11:00",
		IdempotencyKey: "abc-123",
	}
	first, err := f.reserve.Reserve(ctx, owner(), in)
	require.NoError(t, err)

	moved := in
	moved.StartTime, moved.EndTime = "14:00", "15:00"
	_, err = f.reserve.Reserve(ctx, owner(), moved)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	otherPile := in
	otherPile.PileID = f.store.seedPile(models.Pile{LocationID: 10, Name: "A-02", Connector: "Type2", PowerKW: 7, FeeRate: 1.2, Status: models.PileAvailable})
	_, err = f.reserve.Reserve(ctx, owner(), otherPile)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.reserve.Cancel(ctx, owner(), first.ID)
	require.NoError(t, err)
	_, err = f.reserve.Reserve(ctx, owner(), in)
	require.ErrorIs(t, err, apperrors.ErrConflict, "a cancelled booking is not replayed")

	reserved := 0
	for _, typ := range f.sink.types() {
		if typ == models.EventSessionReserved {
			reserved++
		}
	}
	assert.Equal(t, 1, reserved, "rejected replays publish nothing")
}

func TestConcurrentReservesNeverDoubleBook(t *testing.T) {
	f := newFixture(t)
	const attempts = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.reserve.Reserve(context.Background(), owner(), ReserveInput{
				PileID: f.pileID, VehicleID: ownerCar, Date: tomorrow, StartTime: "18:00", EndTime: "19:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.HasCode(err, apperrors.CodeConflict):
				conflict++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflict)
}

func TestCancelThenReserveSameWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")

	cancelled, err := f.reserve.Cancel(ctx, owner(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)
	assert.Equal(t, models.CancelReasonUser, cancelled.CancelReason)
	assert.Equal(t, models.PileAvailable, f.store.pile(f.pileID).Status)

	second := f.book(t, other(), otherCar, tomorrow, "10:00", "11:00")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.PileReserved, f.store.pile(f.pileID).Status)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")

	_, err := f.reserve.Cancel(ctx, other(), session.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.reserve.Cancel(ctx, owner(), 999)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	byAdmin, err := f.reserve.Cancel(ctx, admin(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CancelReasonAdmin, byAdmin.CancelReason)

	_, err = f.reserve.Cancel(ctx, owner(), session.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestCancelKeepsPileReservedWhileOthersRemain(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")
	f.book(t, other(), otherCar, tomorrow, "12:00", "13:00")

	_, err := f.reserve.Cancel(context.Background(), owner(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PileReserved, f.store.pile(f.pileID).Status)
}

func TestListUserSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")
	second := f.book(t, owner(), ownerCar, tomorrow, "12:00", "13:00")
	f.book(t, other(), otherCar, tomorrow, "14:00", "15:00")

	sessions, err := f.reserve.ListUserSessions(ctx, owner(), ownerID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	_, err = f.reserve.ListUserSessions(ctx, other(), ownerID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	all, err := f.reserve.ListUserSessions(ctx, admin(), otherID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/services/charging-service/internal/models"
)

func TestStartAndStopBillsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.book(t, owner(), ownerCar, today, "09:00", "11:00")

	started, err := f.lifecycle.Start(ctx, owner(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionOngoing, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, models.PileCharging, f.store.pile(f.pileID).Status)

	f.clock.Advance(90 * time.Minute)
	stopped, err := f.lifecycle.Stop(ctx, owner(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, stopped.Status)
	require.NotNil(t, stopped.EnergyKWh)
	require.NotNil(t, stopped.FeeAmount)
	assert.InDelta(t, 10.5, *stopped.EnergyKWh, 1e-9)
	assert.InDelta(t, 12.6, *stopped.FeeAmount, 1e-9)
	assert.Equal(t, 90*time.Minute, stopped.EndedAt.Sub(*stopped.StartedAt))
	assert.Equal(t, models.PileAvailable, f.store.pile(f.pileID).Status)

	assert.Equal(t, []models.SessionEventType{
		models.EventSessionReserved,
		models.EventSessionStarted,
		models.EventSessionCompleted,
	}, f.sink.types())
	assert.Equal(t, 1, f.recorder.transitions[models.SessionOngoing])
	assert.Equal(t, 1, f.recorder.transitions[models.SessionCompleted])
}

func TestStopKeepsPileReservedForLaterBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.book(t, owner(), ownerCar, today, "09:00", "10:00")
	f.book(t, other(), otherCar, today, "12:00", "13:00")

	_, err := f.lifecycle.Start(ctx, owner(), now.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Stop(ctx, owner(), now.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PileReserved, f.store.pile(f.pileID).Status)
}

func TestLifecycleStateMachineClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cancelled := f.book(t, owner(), ownerCar, tomorrow, "10:00", "11:00")
	_, err := f.reserve.Cancel(ctx, owner(), cancelled.ID)
	require.NoError(t, err)

	completed := f.book(t, owner(), ownerCar, tomorrow, "12:00", "13:00")
	_, err = f.lifecycle.Start(ctx, owner(), completed.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.Stop(ctx, owner(), completed.ID)
	require.NoError(t, err)

	reserved := f.book(t, owner(), ownerCar, tomorrow, "14:00", "15:00")

	for _, id := range []int64{cancelled.ID, completed.ID} {
		_, err := f.lifecycle.Start(ctx, owner(), id)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
		_, err = f.lifecycle.Stop(ctx, owner(), id)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
		_, err = f.reserve.Cancel(ctx, owner(), id)
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	}

	_, err = f.lifecycle.Stop(ctx, owner(), reserved.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState, "stop before start")

	_, err = f.lifecycle.Start(ctx, owner(), 999)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	assert.Equal(t, models.SessionCancelled, f.store.session(cancelled.ID).Status)
	assert.Equal(t, models.SessionCompleted, f.store.session(completed.ID).Status)
	assert.Equal(t, models.SessionReserved, f.store.session(reserved.ID).Status)
}

func TestLifecycleRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.book(t, owner(), ownerCar, today, "09:00", "10:00")

	_, err := f.lifecycle.Start(ctx, other(), session.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.lifecycle.Start(ctx, admin(), session.ID)
	require.NoError(t, err)

	_, err = f.lifecycle.Stop(ctx, other(), session.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, models.SessionOngoing, f.store.session(session.ID).Status)
}

func TestBillRounding(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		power   float64
		rate    float64
		energy  float64
		fee     float64
	}{
		{"ninety minutes", 90 * time.Minute, 7, 1.2, 10.5, 12.6},
		{"zero", 0, 7, 1.2, 0, 0},
		{"negative clamps", -time.Minute, 7, 1.2, 0, 0},
		{"one second", time.Second, 60, 1, 0.017, 0.02},
		{"half up", 10 * time.Minute, 3.3, 0.5, 0.55, 0.28},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			energy, fee := Bill(tc.elapsed, tc.power, tc.rate)
			assert.InDelta(t, tc.energy, energy, 1e-9)
			assert.InDelta(t, tc.fee, fee, 1e-9)
		})
	}
}

func TestStartRejectedOnOfflinePile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.book(t, owner(), ownerCar, today, "09:00", "10:00")
	require.NoError(t, f.store.SetPileStatus(ctx, f.pileID, models.PileOffline))

	_, err := f.lifecycle.Start(ctx, owner(), session.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	assert.Equal(t, models.SessionReserved, f.store.session(session.ID).Status)
	assert.Equal(t, models.PileOffline, f.store.pile(f.pileID).Status)
	assert.NotContains(t, f.sink.types(), models.EventSessionStarted)
}

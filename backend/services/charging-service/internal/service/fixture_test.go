package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"campusev/backend/services/charging-service/internal/models"
)

const (
	ownerID  int64 = 100
	otherID  int64 = 200
	ownerCar int64 = 1
	otherCar int64 = 2
	today          = "2025-06-01"
	tomorrow       = "2025-06-02"
)

var campusZone = time.FixedZone("CST", 8*60*60)

type fixture struct {
	store     *memStore
	clock     *fakeClock
	sink      *recordingSink
	recorder  *countingRecorder
	opts      Options
	sweeper   *Sweeper
	reserve   *ReservationService
	lifecycle *LifecycleService
	slots     *SlotService
	piles     *PileService
	pileID    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		clock:    &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, campusZone)},
		sink:     &recordingSink{},
		recorder: newCountingRecorder(),
	}
	f.opts = Options{
		Clock:    f.clock.Now,
		Location: campusZone,
		Events:   f.sink,
		Recorder: f.recorder,
	}
	f.pileID = f.store.seedPile(models.Pile{
		LocationID: 10,
		Name:       "Library A-01",
		Connector:  "Type2",
		PowerKW:    7,
		FeeRate:    1.2,
		Status:     models.PileAvailable,
	})

	vehicles := fakeVehicles{
		ownerCar: {ID: ownerCar, OwnerID: ownerID, PlateNumber: "SC-001", Status: models.VehicleActive},
		otherCar: {ID: otherCar, OwnerID: otherID, PlateNumber: "SC-002", Status: models.VehicleActive},
	}
	areas := fakeAreas{
		10: {ID: 10, Name: "Library", LocationType: models.LocationTypeCharging},
		20: {ID: 20, Name: "Canteen", LocationType: "dining"},
	}

	f.sweeper = NewSweeper(f.store, f.opts)
	f.reserve = NewReservationService(f.store, vehicles, f.sweeper, &fakeIdempotency{}, f.opts)
	f.lifecycle = NewLifecycleService(f.store, f.sweeper, f.opts)
	f.slots = NewSlotService(f.store, f.sweeper, f.opts)
	f.piles = NewPileService(f.store, areas, f.opts)
	return f
}

func owner() Actor { return Actor{UserID: ownerID, Role: RoleStudent} }
func other() Actor { return Actor{UserID: otherID, Role: RoleStaff} }
func admin() Actor { return Actor{UserID: 1, Role: RoleAdmin} }

func (f *fixture) book(t *testing.T, actor Actor, vehicle int64, date, start, end string) *models.Session {
	t.Helper()
	session, err := f.reserve.Reserve(context.Background(), actor, ReserveInput{
		PileID:    f.pileID,
		VehicleID: vehicle,
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	return session
}

package availability

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	failGet bool
	// beforeSet срабатывает один раз перед следующей записью
	beforeSet func()
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, false, errors.New("redis down")
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(string(c.data[key]), 10, 64)
	n++
	c.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

type fixture struct {
	store *memory.Store
	cache *mapCache
	clock *fixedClock
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddStation(domain.Station{ID: 1, Name: "Central"})
	for _, p := range []domain.Port{
		{ID: 11, StationID: 1, Label: "A", ConnectorType: "CCS2", PowerKW: 50},
		{ID: 12, StationID: 1, Label: "B", ConnectorType: "CCS2", PowerKW: 50},
		{ID: 13, StationID: 1, Label: "C", ConnectorType: "Type2", Status: domain.PortMaintenance},
	} {
		_, err := store.AddPort(p)
		require.NoError(t, err)
	}

	cache := newMapCache()
	clock := &fixedClock{now: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)}
	svc := NewService(store, store, store, cache, time.UTC, logger.NewNop())
	svc.timeProvider = clock

	return &fixture{store: store, cache: cache, clock: clock, svc: svc}
}

func (f *fixture) book(t *testing.T, portID int64, start, end time.Time) *domain.Booking {
	t.Helper()
	b, err := f.store.Create(context.Background(), &domain.Booking{
		UserID:    7,
		StationID: 1,
		PortID:    portID,
		StartsAt:  start,
		EndsAt:    end,
		Status:    domain.StatusPending,
	})
	require.NoError(t, err)
	return b
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC)
}

func TestPortAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	morning := f.book(t, 11, at(1, 10, 0), at(1, 11, 0))
	night := f.book(t, 11, at(1, 23, 30), at(2, 0, 30))

	got, err := f.svc.PortAvailability(ctx, 11, "2025-06-01")
	require.NoError(t, err)

	assert.Equal(t, domain.PortInUse, got.Status)
	assert.Equal(t, "2025-06-01", got.Date)
	require.Len(t, got.Busy, 2)
	assert.Equal(t, morning.ID, got.Busy[0].BookingID)
	assert.Equal(t, night.ID, got.Busy[1].BookingID)

	require.Len(t, got.Free, 2)
	assert.Equal(t, at(1, 0, 0), got.Free[0].Start)
	assert.Equal(t, at(1, 10, 0), got.Free[0].End)
	assert.Equal(t, at(1, 11, 0), got.Free[1].Start)
	assert.Equal(t, at(1, 23, 30), got.Free[1].End)
}

func TestPortAvailability_CrossMidnightBlocksNextDate(t *testing.T) {
	f := newFixture(t)
	f.book(t, 11, at(1, 23, 30), at(2, 0, 30))

	got, err := f.svc.PortAvailability(context.Background(), 11, "2025-06-02")
	require.NoError(t, err)

	require.Len(t, got.Busy, 1)
	require.NotEmpty(t, got.Free)
	assert.Equal(t, at(2, 0, 30), got.Free[0].Start)
	assert.Equal(t, domain.PortAvailable, got.Status)
}

func TestPortAvailability_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PortAvailability(ctx, 404, "2025-06-01")
	assert.ErrorIs(t, err, ErrPortNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.PortAvailability(ctx, 11, "01.06.2025")
	assert.ErrorIs(t, err, timewindow.ErrInvalidDate)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.svc.PortAvailability(ctx, 13, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, domain.PortMaintenance, got.Status)
}

func TestStationAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.book(t, 11, at(1, 10, 0), at(1, 11, 0))
	f.book(t, 12, at(1, 12, 0), at(1, 13, 0))

	got, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)

	require.Len(t, got.Ports, 3)
	assert.Equal(t, domain.PortInUse, got.Ports[0].Status)
	require.NotNil(t, got.Ports[0].ActiveBookingID)
	assert.Equal(t, active.ID, *got.Ports[0].ActiveBookingID)
	assert.Equal(t, at(1, 11, 0), *got.Ports[0].BusyUntil)
	assert.Equal(t, domain.PortAvailable, got.Ports[1].Status)
	assert.Equal(t, domain.PortMaintenance, got.Ports[2].Status)
	assert.Equal(t, 1, got.Available)

	_, err = f.svc.StationAvailability(ctx, 404)
	assert.ErrorIs(t, err, ErrStationNotFound)
}

func TestStationAvailability_CacheAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Available)

	b := f.book(t, 12, at(1, 10, 0), at(1, 11, 0))

	cached, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cached.Available, "served from cache")

	f.svc.RefreshPort(ctx, b.StationID, b.PortID)

	fresh, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Available)
}

func TestStationAvailability_CacheFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.cache.failGet = true

	got, err := f.svc.StationAvailability(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)
}

func TestRefreshPort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, 11, at(1, 10, 0), at(1, 11, 0))
	f.svc.RefreshPort(ctx, 1, 11)

	port, err := f.store.GetPort(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, domain.PortInUse, port.Status)

	f.clock.now = at(1, 11, 0)
	f.svc.RefreshPort(ctx, 1, 11)
	port, err = f.store.GetPort(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, domain.PortAvailable, port.Status, "end is exclusive")

	f.book(t, 13, at(1, 10, 0), at(1, 12, 0))
	f.svc.RefreshPort(ctx, 1, 13)
	port, err = f.store.GetPort(ctx, 13)
	require.NoError(t, err)
	assert.Equal(t, domain.PortMaintenance, port.Status)

	f.svc.RefreshPort(ctx, 1, 404)
}

func TestStationAvailability_SnapshotComputedBeforeTransitionIsNotServed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// переход фиксируется между расчётом снимка и его записью в кеш
	f.cache.beforeSet = func() {
		b := f.book(t, 12, at(1, 10, 0), at(1, 11, 0))
		f.svc.RefreshPort(ctx, b.StationID, b.PortID)
	}

	stale, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stale.Available)

	fresh, err := f.svc.StationAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Available)
}

func TestRefreshPort_WaitsForPortLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	unitDone := make(chan error, 1)
	go func() {
		unitDone <- f.store.DoSerializable(ctx, func(txCtx context.Context) error {
			if err := f.store.LockPort(txCtx, 11); err != nil {
				return err
			}
			close(locked)
			<-release
			_, err := f.store.Create(txCtx, &domain.Booking{
				UserID:    7,
				StationID: 1,
				PortID:    11,
				StartsAt:  at(1, 10, 0),
				EndsAt:    at(1, 11, 0),
				Status:    domain.StatusPending,
			})
			return err
		})
	}()
	<-locked

	refreshed := make(chan struct{})
	go func() {
		f.svc.RefreshPort(ctx, 1, 11)
		close(refreshed)
	}()

	select {
	case <-refreshed:
		t.Fatal("refresh finished while the port was locked")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-unitDone)

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("refresh did not finish after the lock was released")
	}

	port, err := f.store.GetPort(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, domain.PortInUse, port.Status)
}

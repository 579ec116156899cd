package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/testenv"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/ptr"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/txmanager"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/types"
)

type fixture struct {
	repo      *Repository
	tx        *txmanager.TransactionManager
	stationID int64
	portID    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testenv.Postgres(t)
	stationID := testenv.SeedStation(t, db, "Central", 0.35)
	portID := testenv.SeedPort(t, db, stationID, "A", "CCS2", string(domain.PortAvailable))

	wrapped := dbmetrics.Wrap(db, nil, "test")
	return &fixture{
		repo:      NewRepository(wrapped),
		tx:        txmanager.NewTransactionManager(wrapped, retry.Config{MaxAttempts: 3, InitialInterval: time.Millisecond}),
		stationID: stationID,
		portID:    portID,
	}
}

func (f *fixture) booking(start time.Time, minutes int) *domain.Booking {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return &domain.Booking{
		UserID:          7,
		StationID:       f.stationID,
		PortID:          f.portID,
		BookingDate:     time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:       types.NewTimeString(start),
		EndTime:         types.NewTimeString(end),
		DurationMinutes: minutes,
		StartsAt:        start,
		EndsAt:          end,
		Status:          domain.StatusPending,
		VehicleInfo:     ptr.Ptr("Tesla Model 3"),
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2030, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestLockPort_OutsideTransaction(t *testing.T) {
	f := newFixture(t)

	err := f.repo.LockPort(context.Background(), f.portID)
	assert.ErrorIs(t, err, ErrExecQuery)
}

func TestLockPort_InsideTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.tx.Do(ctx, func(txCtx context.Context) error {
		return f.repo.LockPort(txCtx, f.portID)
	})
	require.NoError(t, err)

	err = f.tx.Do(ctx, func(txCtx context.Context) error {
		return f.repo.LockPort(txCtx, f.portID+1000)
	})
	assert.ErrorIs(t, err, ErrPortNotFound)
}

func TestLockPort_BlocksSecondTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.tx.Do(ctx, func(txCtx context.Context) error {
			if err := f.repo.LockPort(txCtx, f.portID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- f.tx.Do(ctx, func(txCtx context.Context) error {
			return f.repo.LockPort(txCtx, f.portID)
		})
	}()

	select {
	case err := <-secondDone:
		t.Fatalf("second lock acquired while the first transaction held it: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)
}

func TestCreateAndGetByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.repo.Create(ctx, f.booking(at(10, 0), 60))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.portID, got.PortID)
	assert.Equal(t, "10:00", got.StartTime.String())
	assert.Equal(t, "11:00", got.EndTime.String())
	assert.Equal(t, 60, got.DurationMinutes)
	assert.True(t, got.StartsAt.Equal(at(10, 0)))
	assert.True(t, got.EndsAt.Equal(at(11, 0)))
	assert.Equal(t, domain.StatusPending, got.Status)
	require.NotNil(t, got.VehicleInfo)
	assert.Equal(t, "Tesla Model 3", *got.VehicleInfo)
	assert.Nil(t, got.Amount)

	_, err = f.repo.GetByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCreate_ExclusionConstraintMapsToOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Create(ctx, f.booking(at(10, 0), 60))
	require.NoError(t, err)

	_, err = f.repo.Create(ctx, f.booking(at(10, 30), 60))
	assert.ErrorIs(t, err, ErrOverlap)

	// интервалы полуоткрытые: стык не пересечение
	_, err = f.repo.Create(ctx, f.booking(at(11, 0), 30))
	assert.NoError(t, err)
}

func TestCreate_CancelledBookingFreesInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.repo.Create(ctx, f.booking(at(10, 0), 60))
	require.NoError(t, err)

	_, err = f.repo.UpdateStatus(ctx, domain.StatusChange{
		BookingID: first.ID,
		From:      domain.StatusPending,
		To:        domain.StatusCancelled,
		At:        at(9, 0),
		Reason:    ptr.Ptr("plans changed"),
		ActorID:   ptr.Ptr(int64(7)),
	})
	require.NoError(t, err)

	_, err = f.repo.Create(ctx, f.booking(at(10, 0), 60))
	assert.NoError(t, err)
}

func TestUpdateStatus_Conditional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.repo.Create(ctx, f.booking(at(10, 0), 60))
	require.NoError(t, err)

	confirmed, err := f.repo.UpdateStatus(ctx, domain.StatusChange{
		BookingID:  created.ID,
		From:       domain.StatusPending,
		To:         domain.StatusConfirmed,
		At:         at(9, 0),
		Amount:     ptr.Ptr(17.5),
		PaymentRef: ptr.Ptr("pi_123"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.Amount)
	assert.InDelta(t, 17.5, *confirmed.Amount, 0.001)
	require.NotNil(t, confirmed.PaymentRef)
	assert.Equal(t, "pi_123", *confirmed.PaymentRef)
	require.NotNil(t, confirmed.ConfirmedAt)

	// повтор того же перехода: статус уже другой
	_, err = f.repo.UpdateStatus(ctx, domain.StatusChange{
		BookingID: created.ID,
		From:      domain.StatusPending,
		To:        domain.StatusCancelled,
		At:        at(9, 5),
	})
	assert.ErrorIs(t, err, ErrStatusChanged)

	got, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status, "losing update must not apply")

	_, err = f.repo.UpdateStatus(ctx, domain.StatusChange{
		BookingID: created.ID + 1000,
		From:      domain.StatusPending,
		To:        domain.StatusCancelled,
		At:        at(9, 5),
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	morning, err := f.repo.Create(ctx, f.booking(at(10, 0), 60))
	require.NoError(t, err)
	noon, err := f.repo.Create(ctx, f.booking(at(12, 0), 60))
	require.NoError(t, err)
	cancelled, err := f.repo.Create(ctx, f.booking(at(14, 0), 60))
	require.NoError(t, err)
	_, err = f.repo.UpdateStatus(ctx, domain.StatusChange{
		BookingID: cancelled.ID,
		From:      domain.StatusPending,
		To:        domain.StatusCancelled,
		At:        at(9, 0),
	})
	require.NoError(t, err)

	overlapping, err := f.repo.ListActiveOverlapping(ctx, f.portID, at(10, 30), at(14, 30))
	require.NoError(t, err)
	require.Len(t, overlapping, 2)
	assert.Equal(t, morning.ID, overlapping[0].ID)
	assert.Equal(t, noon.ID, overlapping[1].ID)

	current, err := f.repo.ListActiveAt(ctx, []int64{f.portID}, at(11, 0))
	require.NoError(t, err)
	assert.Empty(t, current, "end is exclusive")

	current, err = f.repo.ListActiveAt(ctx, []int64{f.portID}, at(12, 0))
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, noon.ID, current[0].ID)

	count, err := f.repo.CountActiveByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	active, err := f.repo.List(ctx, domain.BookingsFilter{UserID: ptr.Ptr(int64(7))})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, noon.ID, active[0].ID, "newest first")

	all, err := f.repo.List(ctx, domain.BookingsFilter{PortID: ptr.Ptr(f.portID), IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

package request_booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/testenv"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/txmanager"
)

// createThenFail записывает бронирование и затем сообщает об ошибке
type createThenFail struct {
	*bookingRepo.Repository
}

func (r createThenFail) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	if _, err := r.Repository.Create(ctx, booking); err != nil {
		return nil, err
	}
	return nil, errors.New("connection lost after insert")
}

type pgFixture struct {
	db     *sql.DB
	portID int64
	uc     *UseCase
}

func newPostgresFixture(t *testing.T, wrap func(*bookingRepo.Repository) BookingRepository) *pgFixture {
	t.Helper()

	db := testenv.Postgres(t)
	stationID := testenv.SeedStation(t, db, "Central", 0.35)
	portID := testenv.SeedPort(t, db, stationID, "A", "CCS2", string(domain.PortAvailable))

	wrapped := dbmetrics.Wrap(db, nil, "test")
	bookings := bookingRepo.NewRepository(wrapped)
	var repo BookingRepository = bookings
	if wrap != nil {
		repo = wrap(bookings)
	}
	tm := txmanager.NewTransactionManager(wrapped, retry.Config{
		MaxAttempts:     10,
		InitialInterval: time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
	})

	uc := NewUseCase(repo, catalogRepo.NewRepository(wrapped), nil, &noopRefresher{}, tm, nil, settings(), logger.NewNop())
	uc.timeProvider = &fixedClock{now: time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)}

	return &pgFixture{db: db, portID: portID, uc: uc}
}

func (f *pgFixture) countBookings(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM bookings`).Scan(&n))
	return n
}

func TestExecute_Postgres_SameWindowSingleWinner(t *testing.T) {
	f := newPostgresFixture(t, nil)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			req := request(f.portID, "10:00", 60)
			req.UserID = userID
			_, err := f.uc.Execute(context.Background(), req)
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	granted := 0
	for err := range errs {
		if err == nil {
			granted++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotConflict)
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, 1, f.countBookings(t))
}

// Для случайного набора окон: принятые не пересекаются, а каждое
// отклонённое пересекается хотя бы с одним принятым
func TestExecute_Postgres_RandomWindowsNeverOverlap(t *testing.T) {
	f := newPostgresFixture(t, nil)
	rnd := rand.New(rand.NewSource(20240601))

	type attempt struct {
		req *Request
		err error
	}

	const workers = 24
	attempts := make([]*attempt, workers)
	for i := range attempts {
		startMinutes := 8*60 + rnd.Intn(16)*15
		attempts[i] = &attempt{req: &Request{
			UserID:          int64(i + 1),
			PortID:          f.portID,
			Date:            "2024-06-01",
			StartTime:       fmt.Sprintf("%02d:%02d", startMinutes/60, startMinutes%60),
			DurationMinutes: 30 + rnd.Intn(4)*30,
		}}
	}

	var wg sync.WaitGroup
	for _, a := range attempts {
		wg.Add(1)
		go func(a *attempt) {
			defer wg.Done()
			_, a.err = f.uc.Execute(context.Background(), a.req)
		}(a)
	}
	wg.Wait()

	stored, err := bookingRepo.NewRepository(dbmetrics.Wrap(f.db, nil, "test")).
		ListActiveOverlapping(context.Background(), f.portID,
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	for i := range stored {
		for j := i + 1; j < len(stored); j++ {
			a, b := stored[i], stored[j]
			assert.False(t, a.StartsAt.Before(b.EndsAt) && b.StartsAt.Before(a.EndsAt),
				"bookings %d and %d overlap", a.ID, b.ID)
		}
	}

	granted := 0
	for _, a := range attempts {
		if a.err == nil {
			granted++
			continue
		}
		require.ErrorIs(t, a.err, ErrSlotConflict)

		start, err := time.Parse("2006-01-02 15:04", a.req.Date+" "+a.req.StartTime)
		require.NoError(t, err)
		end := start.Add(time.Duration(a.req.DurationMinutes) * time.Minute)

		blocked := false
		for _, b := range stored {
			if b.StartsAt.Before(end) && start.Before(b.EndsAt) {
				blocked = true
				break
			}
		}
		assert.True(t, blocked, "request %s+%dm rejected without an overlapping booking", a.req.StartTime, a.req.DurationMinutes)
	}
	assert.Equal(t, len(stored), granted)
}

func TestExecute_Postgres_FailedWriteLeavesNothing(t *testing.T) {
	f := newPostgresFixture(t, func(r *bookingRepo.Repository) BookingRepository {
		return createThenFail{r}
	})

	_, err := f.uc.Execute(context.Background(), request(f.portID, "10:00", 60))
	assert.ErrorIs(t, err, ErrInternal)
	assert.Zero(t, f.countBookings(t), "the insert is rolled back with the transaction")
}

func TestExecute_Postgres_UnknownPort(t *testing.T) {
	f := newPostgresFixture(t, nil)

	_, err := f.uc.Execute(context.Background(), request(f.portID+1000, "10:00", 60))
	assert.ErrorIs(t, err, ErrPortNotFound)
	assert.Zero(t, f.countBookings(t))
}

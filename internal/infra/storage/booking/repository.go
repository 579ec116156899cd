package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/psqlbuilder"
)

// pgExclusionViolation SQLSTATE нарушения EXCLUDE-ограничения bookings_no_overlap
const pgExclusionViolation = "23P01"

var bookingColumns = []string{
	"id",
	"user_id",
	"station_id",
	"port_id",
	"booking_date",
	"start_time",
	"end_time",
	"duration_minutes",
	"starts_at",
	"ends_at",
	"status",
	"vehicle_info",
	"special_requests",
	"amount",
	"payment_ref",
	"cancellation_reason",
	"cancelled_by",
	"confirmed_at",
	"completed_at",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// LockPort берёт эксклюзивную блокировку строки порта до конца транзакции
// Все проверки пересечений и вставки для одного порта сериализуются на этой строке,
// запросы к разным портам друг друга не блокируют.
// Вызов вне транзакции возвращает ошибку
func (r *Repository) LockPort(ctx context.Context, portID int64) error {
	if !dbmetrics.IsInTransaction(ctx) {
		return fmt.Errorf("%w: LockPort - must be called inside a transaction", ErrExecQuery)
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From("ports").
		Where(squirrel.Eq{"id": portID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: LockPort - build select query: %v", ErrBuildQuery, err)
	}

	var id int64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPortNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: LockPort - scan: %w", ErrExecQuery, err)
	}

	return nil
}

// Create создает новое бронирование
// Если в контексте передана активная транзакция, использует её
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"user_id",
			"station_id",
			"port_id",
			"booking_date",
			"start_time",
			"end_time",
			"duration_minutes",
			"starts_at",
			"ends_at",
			"status",
			"vehicle_info",
			"special_requests",
		).
		Values(
			booking.UserID,
			booking.StationID,
			booking.PortID,
			booking.BookingDate,
			booking.StartTime,
			booking.EndTime,
			booking.DurationMinutes,
			booking.StartsAt,
			booking.EndsAt,
			booking.Status,
			booking.VehicleInfo,
			booking.SpecialRequests,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgExclusionViolation {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %w", ErrScanRow, err)
	}

	return booking, nil
}

// ListActiveOverlapping возвращает активные бронирования порта, пересекающие [start, end)
// Результат упорядочен по началу интервала
func (r *Repository) ListActiveOverlapping(ctx context.Context, portID int64, start, end time.Time) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"port_id": portID}).
		Where(squirrel.Eq{"status": statusStrings(domain.ActiveStatuses)}).
		Where(squirrel.Lt{"starts_at": end}).
		Where(squirrel.Gt{"ends_at": start}).
		OrderBy("starts_at ASC", "id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveOverlapping - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// ListActiveAt возвращает активные бронирования указанных портов, интервал которых содержит момент at
// Один запрос на весь список портов, используется проекцией доступности станции
func (r *Repository) ListActiveAt(ctx context.Context, portIDs []int64, at time.Time) ([]*domain.Booking, error) {
	if len(portIDs) == 0 {
		return []*domain.Booking{}, nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"port_id": portIDs}).
		Where(squirrel.Eq{"status": statusStrings(domain.ActiveStatuses)}).
		Where(squirrel.LtOrEq{"starts_at": at}).
		Where(squirrel.Gt{"ends_at": at}).
		OrderBy("port_id ASC", "starts_at ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveAt - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveAt - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// CountActiveByUser считает активные бронирования пользователя
func (r *Repository) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"status": statusStrings(domain.ActiveStatuses)}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountActiveByUser - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountActiveByUser - scan: %w", ErrScanRow, err)
	}

	return count, nil
}

// List получает бронирования с гибкой фильтрацией
// Поддерживает фильтрацию по пользователю, станции, порту, периоду и статусу.
// По умолчанию завершённые и отменённые бронирования не возвращаются.
func (r *Repository) List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).From("bookings")

	if filter.UserID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.StationID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"station_id": *filter.StationID})
	}
	if filter.PortID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"port_id": *filter.PortID})
	}
	if filter.StartDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"booking_date": *filter.StartDate})
	}
	if filter.EndDate != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"booking_date": *filter.EndDate})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeInactive {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": statusStrings(domain.InactiveStatuses)})
	}

	query, args, err := selectBuilder.OrderBy("starts_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// UpdateStatus применяет шаг машины состояний
// Обновление условное (WHERE status = from): если статус уже изменился, возвращается ErrStatusChanged
func (r *Repository) UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("bookings").
		Set("status", change.To).
		Set("updated_at", change.At)

	switch change.To {
	case domain.StatusConfirmed:
		updateBuilder = updateBuilder.
			Set("confirmed_at", change.At).
			Set("amount", change.Amount).
			Set("payment_ref", change.PaymentRef)
	case domain.StatusCompleted:
		updateBuilder = updateBuilder.Set("completed_at", change.At)
	case domain.StatusCancelled:
		updateBuilder = updateBuilder.
			Set("cancelled_at", change.At).
			Set("cancellation_reason", change.Reason).
			Set("cancelled_by", change.ActorID)
	}

	query, args, err := updateBuilder.
		Where(squirrel.Eq{"id": change.BookingID}).
		Where(squirrel.Eq{"status": change.From}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, change.BookingID); err != nil {
			return nil, err
		}
		return nil, ErrStatusChanged
	}

	return r.GetByID(ctx, change.BookingID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.StationID,
		&booking.PortID,
		&booking.BookingDate,
		&booking.StartTime,
		&booking.EndTime,
		&booking.DurationMinutes,
		&booking.StartsAt,
		&booking.EndsAt,
		&booking.Status,
		&booking.VehicleInfo,
		&booking.SpecialRequests,
		&booking.Amount,
		&booking.PaymentRef,
		&booking.CancellationReason,
		&booking.CancelledBy,
		&booking.ConfirmedAt,
		&booking.CompletedAt,
		&booking.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func (r *Repository) scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %w", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %w", ErrScanRow, err)
	}

	return bookings, nil
}

func statusStrings(statuses []domain.BookingStatus) []string {
	result := make([]string, len(statuses))
	for i, s := range statuses {
		result[i] = string(s)
	}
	return result
}

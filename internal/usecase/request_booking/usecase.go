package request_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/userservice"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
)

const operation = "RequestBooking"

// UseCase use case для бронирования порта
type UseCase struct {
	bookingRepo  BookingRepository
	catalogRepo  CatalogRepository
	userClient   UserServiceClient
	refresher    PortStatusRefresher
	txManager    TransactionManager
	metrics      Metrics
	settings     Settings
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
// userClient может быть nil: тогда данные автомобиля берутся только из запроса
func NewUseCase(
	bookingRepo BookingRepository,
	catalogRepo CatalogRepository,
	userClient UserServiceClient,
	refresher PortStatusRefresher,
	txManager TransactionManager,
	metrics Metrics,
	settings Settings,
	logger Logger,
) *UseCase {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &UseCase{
		bookingRepo:  bookingRepo,
		catalogRepo:  catalogRepo,
		userClient:   userClient,
		refresher:    refresher,
		txManager:    txManager,
		metrics:      metrics,
		settings:     settings,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case бронирования порта
// Проверка пересечений и вставка выполняются одной сериализуемой единицей под блокировкой порта
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RequestBooking: user=%d, port=%d, date=%s, start=%s, end=%s, duration=%d",
		req.UserID, req.PortID, req.Date, req.StartTime, req.EndTime, req.DurationMinutes)

	result, err := uc.execute(ctx, req)
	uc.observe(err)
	return result, err
}

func (uc *UseCase) execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RequestBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Нормализуем окно в интервал
	window, err := timewindow.Parse(timewindow.Request{
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
	}, uc.settings.Bounds, uc.settings.Location)
	if err != nil {
		uc.logger.Warn("RequestBooking: invalid window: %v", err)
		return nil, err
	}

	// 3. Окно не в прошлом (если это не разрешено) и не дальше горизонта бронирования
	now := uc.timeProvider.Now()
	if err := validateWindow(window, now, uc.settings); err != nil {
		uc.logger.Warn("RequestBooking: window rejected: %v", err)
		return nil, err
	}

	// 4. Порт и станция должны существовать на момент создания
	port, err := uc.getPort(ctx, req.PortID)
	if err != nil {
		return nil, err
	}

	station, err := uc.getStation(ctx, port.StationID)
	if err != nil {
		return nil, err
	}

	// 5. Данные автомобиля
	vehicleInfo := req.VehicleInfo
	if vehicleInfo == nil {
		vehicle := uc.selectedVehicle(ctx, req.UserID)
		if err := validateConnector(vehicle, port); err != nil {
			uc.logger.Warn("RequestBooking: %v", err)
			return nil, err
		}
		if vehicle != nil {
			info := vehicle.Describe()
			vehicleInfo = &info
		}
	}

	var result *domain.Booking

	// 6. Проверка пересечений и вставка в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 6.1. Блокируем порт: запросы к другим портам не ждут
		if err := uc.bookingRepo.LockPort(txCtx, port.ID); err != nil {
			if errors.Is(err, bookingRepo.ErrPortNotFound) {
				return ErrPortNotFound
			}
			uc.logger.Error("RequestBooking: failed to lock port=%d: %v", port.ID, err)
			return fmt.Errorf("%w: lock port: %w", ErrInternal, err)
		}

		// 6.2. Лимит активных бронирований пользователя
		if uc.settings.MaxActivePerUser > 0 {
			active, err := uc.bookingRepo.CountActiveByUser(txCtx, req.UserID)
			if err != nil {
				uc.logger.Error("RequestBooking: failed to count active bookings of user=%d: %v", req.UserID, err)
				return fmt.Errorf("%w: count active bookings: %w", ErrInternal, err)
			}
			if active >= uc.settings.MaxActivePerUser {
				uc.logger.Warn("RequestBooking: user=%d already has %d active bookings", req.UserID, active)
				return fmt.Errorf("%w: limit is %d", ErrTooManyActiveBookings, uc.settings.MaxActivePerUser)
			}
		}

		// 6.3. Активные бронирования порта, пересекающие запрошенный интервал
		overlapping, err := uc.bookingRepo.ListActiveOverlapping(txCtx, port.ID, window.Start, window.End)
		if err != nil {
			uc.logger.Error("RequestBooking: failed to list bookings of port=%d: %v", port.ID, err)
			return fmt.Errorf("%w: list bookings: %w", ErrInternal, err)
		}
		if len(overlapping) > 0 {
			first := overlapping[0]
			uc.logger.Warn("RequestBooking: port=%d interval %s overlaps booking id=%d",
				port.ID, window.Interval, first.ID)
			return fmt.Errorf("%w: %s - %s is taken",
				ErrSlotConflict,
				first.StartsAt.In(uc.settings.Location).Format(domain.TimeFormat),
				first.EndsAt.In(uc.settings.Location).Format(domain.TimeFormat))
		}

		// 6.4. Создаём бронирование последней записью транзакции
		booking := &domain.Booking{
			UserID:          req.UserID,
			StationID:       station.ID,
			PortID:          port.ID,
			BookingDate:     window.Date,
			StartTime:       window.StartTime,
			EndTime:         window.EndTime,
			DurationMinutes: window.Minutes(),
			StartsAt:        window.Start,
			EndsAt:          window.End,
			Status:          domain.StatusPending,
			VehicleInfo:     vehicleInfo,
			SpecialRequests: req.SpecialRequests,
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrOverlap) {
				uc.logger.Warn("RequestBooking: storage rejected overlapping interval on port=%d", port.ID)
				return ErrSlotConflict
			}
			uc.logger.Error("RequestBooking: failed to create booking: %v", err)
			return fmt.Errorf("%w: create booking: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		if !isKnown(err) {
			uc.logger.Error("RequestBooking: transaction failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return nil, err
	}

	// 7. Обновляем проекцию статуса порта; ошибки не отменяют бронирование
	uc.refresher.RefreshPort(ctx, station.ID, port.ID)

	uc.logger.Info("RequestBooking: successfully created booking id=%d on port=%d %s",
		result.ID, port.ID, window.Interval)

	return &Response{
		ID:              result.ID,
		UserID:          result.UserID,
		StationID:       result.StationID,
		PortID:          result.PortID,
		BookingDate:     result.BookingDate,
		StartTime:       result.StartTime,
		EndTime:         result.EndTime,
		DurationMinutes: result.DurationMinutes,
		StartsAt:        result.StartsAt,
		EndsAt:          result.EndsAt,
		Status:          string(result.Status),
		StationName:     station.Name,
		PortLabel:       port.Label,
		ConnectorType:   port.ConnectorType,
		VehicleInfo:     result.VehicleInfo,
		SpecialRequests: result.SpecialRequests,
		CreatedAt:       result.CreatedAt,
		UpdatedAt:       result.UpdatedAt,
	}, nil
}

// getPort читает порт из каталога, повторяя транзиентные сбои
func (uc *UseCase) getPort(ctx context.Context, portID int64) (*domain.Port, error) {
	var port *domain.Port
	err := retry.Do(ctx, uc.settings.CatalogRetry, isTransientCatalogError, func(ctx context.Context) error {
		p, err := uc.catalogRepo.GetPort(ctx, portID)
		if err != nil {
			return err
		}
		port = p
		return nil
	})
	if err != nil {
		if errors.Is(err, catalogRepo.ErrPortNotFound) {
			uc.logger.Warn("RequestBooking: port id=%d not found", portID)
			return nil, ErrPortNotFound
		}
		uc.logger.Error("RequestBooking: failed to get port id=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: get port: %v", ErrCatalogUnavailable, err)
	}
	return port, nil
}

// getStation читает станцию из каталога, повторяя транзиентные сбои
func (uc *UseCase) getStation(ctx context.Context, stationID int64) (*domain.Station, error) {
	var station *domain.Station
	err := retry.Do(ctx, uc.settings.CatalogRetry, isTransientCatalogError, func(ctx context.Context) error {
		s, err := uc.catalogRepo.GetStation(ctx, stationID)
		if err != nil {
			return err
		}
		station = s
		return nil
	})
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStationNotFound) {
			uc.logger.Warn("RequestBooking: station id=%d not found", stationID)
			return nil, ErrStationNotFound
		}
		uc.logger.Error("RequestBooking: failed to get station id=%d: %v", stationID, err)
		return nil, fmt.Errorf("%w: get station: %v", ErrCatalogUnavailable, err)
	}
	return station, nil
}

// selectedVehicle выбранный автомобиль пользователя или nil
// Недоступность UserService не мешает бронированию
func (uc *UseCase) selectedVehicle(ctx context.Context, userID int64) *userservice.Vehicle {
	if uc.userClient == nil {
		return nil
	}

	vehicle, err := uc.userClient.GetSelectedVehicleWithGracefulDegradation(ctx, userID)
	if err != nil {
		if !errors.Is(err, userservice.ErrVehicleNotFound) {
			uc.logger.Warn("RequestBooking: booking without vehicle data for user=%d: %v", userID, err)
		}
		return nil
	}
	return vehicle
}

func (uc *UseCase) observe(err error) {
	if uc.metrics == nil {
		return
	}

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrValidation):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	uc.metrics.IncBookingOperation(operation, outcome)
}

func isTransientCatalogError(err error) bool {
	return !errors.Is(err, catalogRepo.ErrPortNotFound) &&
		!errors.Is(err, catalogRepo.ErrStationNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// isKnown ошибки, уже приведённые к видам domain
func isKnown(err error) bool {
	return errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrDependency)
}

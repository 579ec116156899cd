package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/authz"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
)

// Service сервис для работы с бронированиями: переходы машины состояний и чтение
type Service struct {
	bookingRepo  BookingRepository
	catalogRepo  CatalogRepository
	txManager    TransactionManager
	refresher    PortStatusRefresher
	metrics      Metrics
	location     *time.Location
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	catalogRepo CatalogRepository,
	txManager TransactionManager,
	refresher PortStatusRefresher,
	metrics Metrics,
	location *time.Location,
	logger Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		bookingRepo:  bookingRepo,
		catalogRepo:  catalogRepo,
		txManager:    txManager,
		refresher:    refresher,
		metrics:      metrics,
		location:     location,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Confirm переводит бронирование pending -> confirmed по результату оплаты
// Отклонённая оплата возвращает ErrPaymentDeclined, бронирование остаётся pending.
func (s *Service) Confirm(ctx context.Context, bookingID int64, actor domain.Actor, payment models.PaymentResult) (*models.BookingResponse, error) {
	s.logger.Info("Confirm: booking id=%d by user=%d, payment success=%t", bookingID, actor.UserID, payment.Success)

	if payment.Success && payment.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	return s.transition(ctx, "Confirm", bookingID, actor, authz.ActionConfirmBooking, domain.StatusConfirmed,
		func(change *domain.StatusChange) error {
			if !payment.Success {
				return fmt.Errorf("%w: %s", ErrPaymentDeclined, payment.DeclineReason)
			}
			amount := payment.Amount
			change.Amount = &amount
			if payment.Reference != "" {
				ref := payment.Reference
				change.PaymentRef = &ref
			}
			return nil
		})
}

// Cancel отменяет бронирование из pending или confirmed и освобождает интервал
// Отменить может владелец бронирования, владелец станции или администратор.
func (s *Service) Cancel(ctx context.Context, bookingID int64, actor domain.Actor, reason string) (*models.BookingResponse, error) {
	s.logger.Info("Cancel: booking id=%d by user=%d", bookingID, actor.UserID)

	if len([]rune(reason)) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: cancellation reason exceeds %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
	}

	return s.transition(ctx, "Cancel", bookingID, actor, authz.ActionCancelBooking, domain.StatusCancelled,
		func(change *domain.StatusChange) error {
			if reason != "" {
				change.Reason = &reason
			}
			if actor.Role != domain.RoleSystem {
				by := actor.UserID
				change.ActorID = &by
			}
			return nil
		})
}

// Complete переводит бронирование confirmed -> completed
// Вызывается владельцем станции или системной задачей; автоматического завершения нет.
func (s *Service) Complete(ctx context.Context, bookingID int64, actor domain.Actor) (*models.BookingResponse, error) {
	s.logger.Info("Complete: booking id=%d by user=%d role=%s", bookingID, actor.UserID, actor.Role)

	return s.transition(ctx, "Complete", bookingID, actor, authz.ActionCompleteBooking, domain.StatusCompleted, nil)
}

// ListActiveIntervals активные интервалы порта, пересекающие дату, по возрастанию начала
func (s *Service) ListActiveIntervals(ctx context.Context, portID int64, date string) ([]models.ActiveInterval, error) {
	s.logger.Info("ListActiveIntervals: port=%d, date=%s", portID, date)

	day, err := timewindow.ParseDate(date, s.location)
	if err != nil {
		s.logger.Warn("ListActiveIntervals: invalid date %q", date)
		return nil, err
	}

	if _, err := s.catalogRepo.GetPort(ctx, portID); err != nil {
		if errors.Is(err, catalogRepo.ErrPortNotFound) {
			s.logger.Warn("ListActiveIntervals: port id=%d not found", portID)
			return nil, ErrPortNotFound
		}
		s.logger.Error("ListActiveIntervals: catalog error for port id=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: ListActiveIntervals - catalog error: %v", ErrInternal, err)
	}

	bounds := timewindow.Day(day, s.location)
	active, err := s.bookingRepo.ListActiveOverlapping(ctx, portID, bounds.Start, bounds.End)
	if err != nil {
		s.logger.Error("ListActiveIntervals: repository error for port=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: ListActiveIntervals - repository error: %v", ErrInternal, err)
	}

	result := make([]models.ActiveInterval, 0, len(active))
	for _, b := range active {
		result = append(result, models.ActiveInterval{
			BookingID: b.ID,
			Status:    b.Status,
			Start:     b.StartsAt.In(s.location),
			End:       b.EndsAt.In(s.location),
		})
	}

	return result, nil
}

// GetByID получает бронирование по ID
// Видеть бронирование может его владелец, владелец станции или администратор
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, actor.UserID)

	booking, err := s.getBooking(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	station, err := s.getStation(ctx, "GetByID", booking.StationID)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(actor, authz.ActionViewBooking, authz.Subject{Booking: booking, Station: station}); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", actor.UserID, id)
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	port, err := s.catalogRepo.GetPort(ctx, booking.PortID)
	if err != nil {
		// порт нужен только для отображения
		s.logger.Warn("GetByID: failed to get port id=%d: %v", booking.PortID, err)
		port = nil
	}

	return models.FromDomainBooking(booking).WithCatalog(station, port), nil
}

// GetUserBookings получает историю бронирований пользователя со всеми статусами
// Опционально фильтрует по статусу
func (s *Service) GetUserBookings(ctx context.Context, req *models.GetUserBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetUserBookings: fetching bookings for user=%d, status=%v", req.UserID, req.Status)

	if err := authz.Authorize(req.Actor, authz.ActionListUserBookings, authz.Subject{TargetUserID: req.UserID}); err != nil {
		s.logger.Warn("GetUserBookings: user=%d may not list bookings of user=%d", req.Actor.UserID, req.UserID)
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	filter := domain.BookingsFilter{UserID: &req.UserID, IncludeInactive: true}
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetUserBookings: invalid status=%s for user=%d", *req.Status, req.UserID)
			return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidInput, *req.Status)
		}
		filter.Status = &status
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("GetUserBookings: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetUserBookings: successfully fetched %d bookings for user=%d", len(bookings), req.UserID)
	return s.enrichList(ctx, "GetUserBookings", bookings), nil
}

// GetStationBookings получает бронирования станции с фильтрацией по периоду и статусу
// Доступно только владельцу станции и администратору
func (s *Service) GetStationBookings(ctx context.Context, req *models.GetStationBookingsRequest) (*models.BookingListResponse, error) {
	logMsg := fmt.Sprintf("GetStationBookings: fetching bookings for station=%d, user=%d", req.StationID, req.Actor.UserID)
	if req.StartDate != nil && req.EndDate != nil {
		logMsg += fmt.Sprintf(", period=%s to %s", req.StartDate.Format(domain.DateFormat), req.EndDate.Format(domain.DateFormat))
	}
	if req.Status != nil {
		logMsg += fmt.Sprintf(", status=%s", *req.Status)
	}
	s.logger.Info("%s", logMsg)

	station, err := s.getStation(ctx, "GetStationBookings", req.StationID)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(req.Actor, authz.ActionListStationBookings, authz.Subject{Station: station}); err != nil {
		s.logger.Warn("GetStationBookings: access denied for user=%d to station=%d", req.Actor.UserID, req.StationID)
		return nil, fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetStationBookings: invalid filter for station=%d: %v", req.StationID, err)
		return nil, fmt.Errorf("%w: invalid filter: %v", ErrInvalidInput, err)
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("GetStationBookings: repository error for station=%d: %v", req.StationID, err)
		return nil, fmt.Errorf("%w: GetStationBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetStationBookings: successfully fetched %d bookings for station=%d", len(bookings), req.StationID)
	return s.enrichList(ctx, "GetStationBookings", bookings), nil
}

// transition единый путь всех переходов машины состояний
// Под блокировкой порта бронирование перечитывается, поэтому параллельные
// переходы одного бронирования не теряют обновления.
func (s *Service) transition(
	ctx context.Context,
	op string,
	bookingID int64,
	actor domain.Actor,
	action authz.Action,
	to domain.BookingStatus,
	decorate func(change *domain.StatusChange) error,
) (*models.BookingResponse, error) {
	booking, err := s.getBooking(ctx, op, bookingID)
	if err != nil {
		s.observe(op, err)
		return nil, err
	}

	station, err := s.getStation(ctx, op, booking.StationID)
	if err != nil {
		s.observe(op, err)
		return nil, err
	}

	var updated *domain.Booking
	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := s.bookingRepo.LockPort(txCtx, booking.PortID); err != nil {
			s.logger.Error("%s: failed to lock port=%d: %v", op, booking.PortID, err)
			return fmt.Errorf("%w: %s - lock port: %w", ErrInternal, op, err)
		}

		current, err := s.bookingRepo.GetByID(txCtx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: %s - repository error: %w", ErrInternal, op, err)
		}

		if err := authz.Authorize(actor, action, authz.Subject{Booking: current, Station: station}); err != nil {
			s.logger.Warn("%s: access denied for user=%d to booking id=%d", op, actor.UserID, bookingID)
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}

		if !current.Status.CanTransitionTo(to) {
			s.logger.Warn("%s: booking id=%d cannot move %s -> %s", op, bookingID, current.Status, to)
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
		}

		change := domain.StatusChange{
			BookingID: bookingID,
			From:      current.Status,
			To:        to,
			At:        s.timeProvider.Now(),
		}
		if decorate != nil {
			if err := decorate(&change); err != nil {
				return err
			}
		}

		updated, err = s.bookingRepo.UpdateStatus(txCtx, change)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrStatusChanged) {
				return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
			}
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: %s - update status: %w", ErrInternal, op, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInternal) {
			s.logger.Error("%s: booking id=%d: %v", op, bookingID, err)
		}
		s.observe(op, err)
		return nil, err
	}

	s.refresher.RefreshPort(ctx, updated.StationID, updated.PortID)
	s.observe(op, nil)

	s.logger.Info("%s: booking id=%d is now %s", op, bookingID, updated.Status)
	return models.FromDomainBooking(updated).WithCatalog(station, nil), nil
}

func (s *Service) getBooking(ctx context.Context, op string, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

func (s *Service) getStation(ctx context.Context, op string, id int64) (*domain.Station, error) {
	station, err := s.catalogRepo.GetStation(ctx, id)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStationNotFound) {
			s.logger.Warn("%s: station id=%d not found", op, id)
			return nil, ErrStationNotFound
		}
		s.logger.Error("%s: catalog error for station id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - catalog error: %v", ErrInternal, op, err)
	}
	return station, nil
}

// enrichList дополняет бронирования данными каталога двумя пакетными запросами
// Ошибка каталога не скрывает бронирования: они возвращаются без отображаемых полей.
func (s *Service) enrichList(ctx context.Context, op string, bookings []*domain.Booking) *models.BookingListResponse {
	resp := &models.BookingListResponse{Bookings: make([]models.BookingResponse, 0, len(bookings))}
	if len(bookings) == 0 {
		return resp
	}

	stationIDs := make([]int64, 0)
	portIDs := make([]int64, 0)
	seenStations := make(map[int64]bool)
	seenPorts := make(map[int64]bool)
	for _, b := range bookings {
		if !seenStations[b.StationID] {
			seenStations[b.StationID] = true
			stationIDs = append(stationIDs, b.StationID)
		}
		if !seenPorts[b.PortID] {
			seenPorts[b.PortID] = true
			portIDs = append(portIDs, b.PortID)
		}
	}

	stations := make(map[int64]*domain.Station, len(stationIDs))
	if list, err := s.catalogRepo.ListStations(ctx, stationIDs); err != nil {
		s.logger.Warn("%s: failed to load stations for enrichment: %v", op, err)
	} else {
		for _, st := range list {
			stations[st.ID] = st
		}
	}

	ports := make(map[int64]*domain.Port, len(portIDs))
	if list, err := s.catalogRepo.ListPorts(ctx, portIDs); err != nil {
		s.logger.Warn("%s: failed to load ports for enrichment: %v", op, err)
	} else {
		for _, p := range list {
			ports[p.ID] = p
		}
	}

	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, *models.FromDomainBooking(b).WithCatalog(stations[b.StationID], ports[b.PortID]))
	}
	return resp
}

func (s *Service) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncBookingOperation(op, outcome(err))
}

// outcome метка результата для метрик
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

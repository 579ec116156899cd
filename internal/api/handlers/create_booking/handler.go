package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
	requestBooking "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/request_booking"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgMissingUserID       = "отсутствует ID пользователя"
	msgInvalidDate         = "некорректный формат даты бронирования, ожидается YYYY-MM-DD"
	msgInvalidTime         = "некорректный формат времени, ожидается HH:MM"
	msgInvalidRange        = "время начала должно быть раньше времени окончания"
	msgAmbiguousEnd        = "укажите либо endTime, либо durationMinutes"
	msgDurationOutOfBounds = "недопустимая длительность бронирования"
	msgWindowInPast        = "нельзя забронировать время в прошлом"
	msgDateTooFar          = "дата бронирования слишком далеко в будущем"
	msgConnectorMismatch   = "разъём автомобиля не подходит к порту"
	msgInvalidInput        = "некорректные данные бронирования"
	msgPortNotFound        = "порт не найден"
	msgStationNotFound     = "станция не найдена"
	msgSlotConflict        = "порт уже забронирован на пересекающееся время"
	msgTooManyBookings     = "превышено количество активных бронирований"
)

type Handler struct {
	useCase RequestBookingUseCase
	logger  Logger
}

func NewHandler(useCase RequestBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(userID))
	if err != nil {
		switch {
		case errors.Is(err, requestBooking.ErrSlotConflict):
			h.logger.Warn("POST /bookings - Slot conflict: user_id=%d, port_id=%d", userID, req.PortID)
			handlers.RespondConflict(w, msgSlotConflict)

		case errors.Is(err, requestBooking.ErrTooManyActiveBookings):
			h.logger.Warn("POST /bookings - Too many active bookings: user_id=%d", userID)
			handlers.RespondConflict(w, msgTooManyBookings)

		case errors.Is(err, requestBooking.ErrPortNotFound):
			h.logger.Warn("POST /bookings - Port not found: port_id=%d", req.PortID)
			handlers.RespondNotFound(w, msgPortNotFound)

		case errors.Is(err, requestBooking.ErrStationNotFound):
			h.logger.Warn("POST /bookings - Station not found: port_id=%d", req.PortID)
			handlers.RespondNotFound(w, msgStationNotFound)

		case errors.Is(err, domain.ErrValidation):
			h.logger.Warn("POST /bookings - Validation failed: user_id=%d, port_id=%d, error=%v", userID, req.PortID, err)
			handlers.RespondBadRequest(w, validationMessage(err))

		default:
			h.logger.Error("POST /bookings - Failed to create booking: user_id=%d, port_id=%d, error=%v",
				userID, req.PortID, err)
			handlers.RespondDomainError(w, err, msgInvalidInput)
		}
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, user_id=%d, port_id=%d",
		result.ID, userID, req.PortID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, timewindow.ErrInvalidDate):
		return msgInvalidDate
	case errors.Is(err, timewindow.ErrInvalidTime):
		return msgInvalidTime
	case errors.Is(err, timewindow.ErrInvalidRange):
		return msgInvalidRange
	case errors.Is(err, timewindow.ErrAmbiguousEnd):
		return msgAmbiguousEnd
	case errors.Is(err, timewindow.ErrDurationOutOfBounds):
		return msgDurationOutOfBounds
	case errors.Is(err, requestBooking.ErrWindowInPast):
		return msgWindowInPast
	case errors.Is(err, requestBooking.ErrDateTooFarInFuture):
		return msgDateTooFar
	case errors.Is(err, requestBooking.ErrConnectorMismatch):
		return msgConnectorMismatch
	default:
		return msgInvalidInput
	}
}

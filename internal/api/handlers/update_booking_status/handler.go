package update_booking_status

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	confirmBooking "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/confirm_booking"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgInvalidStatus      = "статус должен быть confirmed, cancelled или completed"
	msgReasonTooLong      = "слишком длинная причина отмены"
	msgNotFound           = "бронирование не найдено"
	msgForbidden          = "доступ запрещен"
	msgInvalidTransition  = "переход в этот статус недоступен"
	msgConcurrentUpdate   = "бронирование было изменено параллельно, повторите запрос"
	msgPaymentDeclined    = "оплата отклонена"
	msgInvalidInput       = "некорректные данные"
)

type Handler struct {
	service BookingService
	confirm ConfirmBookingUseCase
	logger  Logger
}

func NewHandler(service BookingService, confirm ConfirmBookingUseCase, logger Logger) *Handler {
	return &Handler{
		service: service,
		confirm: confirm,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}/status
// confirmed проводит оплату, cancelled и completed переводят бронирование напрямую
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Извлекаем bookingId из URL
	bookingID, err := handlers.PathID(r, "bookingId")
	if err != nil || bookingID <= 0 {
		h.logger.Warn("PATCH /bookings/{id}/status - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("PATCH /bookings/{id}/status - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req UpdateStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	target, ok := domain.ParseBookingStatus(req.Status)
	if !ok || target == domain.StatusPending {
		h.logger.Warn("PATCH /bookings/{id}/status - Invalid target status: %q", req.Status)
		handlers.RespondBadRequest(w, msgInvalidStatus)
		return
	}

	if utf8.RuneCountInString(req.reason()) > domain.MaxCancellationReasonLength {
		handlers.RespondBadRequest(w, msgReasonTooLong)
		return
	}

	var result *models.BookingResponse
	switch target {
	case domain.StatusConfirmed:
		result, err = h.confirm.Execute(r.Context(), &confirmBooking.Request{BookingID: bookingID, Actor: actor})
	case domain.StatusCancelled:
		result, err = h.service.Cancel(r.Context(), bookingID, actor, req.reason())
	case domain.StatusCompleted:
		result, err = h.service.Complete(r.Context(), bookingID, actor)
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.logger.Warn("PATCH /bookings/{id}/status - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, domain.ErrForbidden):
			h.logger.Warn("PATCH /bookings/{id}/status - Access denied: booking_id=%d, user_id=%d", bookingID, actor.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, domain.ErrInvalidState):
			h.logger.Warn("PATCH /bookings/{id}/status - Invalid transition: booking_id=%d, target=%s", bookingID, target)
			handlers.RespondConflict(w, msgInvalidTransition)

		case errors.Is(err, domain.ErrConflict):
			h.logger.Warn("PATCH /bookings/{id}/status - Concurrent update: booking_id=%d", bookingID)
			handlers.RespondConflict(w, msgConcurrentUpdate)

		case errors.Is(err, domain.ErrPaymentDeclined):
			h.logger.Warn("PATCH /bookings/{id}/status - Payment declined: booking_id=%d, user_id=%d", bookingID, actor.UserID)
			handlers.RespondPaymentRequired(w, msgPaymentDeclined)

		default:
			h.logger.Error("PATCH /bookings/{id}/status - Failed to update booking: booking_id=%d, target=%s, error=%v",
				bookingID, target, err)
			handlers.RespondDomainError(w, err, msgInvalidInput)
		}
		return
	}

	h.logger.Info("PATCH /bookings/{id}/status - Booking updated successfully: booking_id=%d, status=%s, user_id=%d",
		bookingID, result.Status, actor.UserID)
	handlers.RespondJSON(w, http.StatusOK, result)
}

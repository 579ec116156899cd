package get_station_bookings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

const (
	msgInvalidStationID = "некорректный ID станции"
	msgMissingUserID    = "отсутствует ID пользователя"
	msgInvalidParams    = "некорректные параметры запроса"
	msgStationNotFound  = "станция не найдена"
	msgForbidden        = "доступ запрещен"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/stations/{stationId}/bookings
// Query params: startDate, endDate, date, status, includeInactive (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	stationID, err := handlers.PathID(r, "stationId")
	if err != nil {
		h.logger.Warn("GET /stations/{id}/bookings - Invalid station ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStationID)
		return
	}

	// Получаем актора из контекста (через middleware Auth)
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /stations/{id}/bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	query := r.URL.Query()
	serviceReq, err := ToServiceRequest(
		stationID,
		actor,
		query.Get("startDate"),
		query.Get("endDate"),
		query.Get("date"),
		query.Get("status"),
		query.Get("includeInactive"),
	)
	if err != nil {
		h.logger.Warn("GET /stations/{id}/bookings - Invalid parameters: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	// Получаем бронирования станции (сервис сам проверит права владельца)
	result, err := h.service.GetStationBookings(r.Context(), serviceReq)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.logger.Warn("GET /stations/{id}/bookings - Station not found: station_id=%d", stationID)
			handlers.RespondNotFound(w, msgStationNotFound)

		case errors.Is(err, domain.ErrForbidden):
			h.logger.Warn("GET /stations/{id}/bookings - Access denied: station_id=%d, user_id=%d",
				stationID, actor.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, domain.ErrValidation):
			h.logger.Warn("GET /stations/{id}/bookings - Invalid filter: %v", err)
			handlers.RespondBadRequest(w, msgInvalidParams)

		default:
			h.logger.Error("GET /stations/{id}/bookings - Failed to get bookings: station_id=%d, error=%v",
				stationID, err)
			handlers.RespondDomainError(w, err, msgInvalidParams)
		}
		return
	}

	h.logger.Info("GET /stations/{id}/bookings - Bookings retrieved successfully: station_id=%d, count=%d",
		stationID, len(result.Bookings))
	handlers.RespondJSON(w, http.StatusOK, result.Bookings)
}

package get_port_intervals

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

const (
	msgInvalidPortID = "некорректный ID порта"
	msgInvalidDate   = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgPortNotFound  = "порт не найден"
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

// Handle GET /api/v1/ports/{portId}/intervals?date=
// Активные интервалы порта на дату, по возрастанию начала
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	portID, err := handlers.PathID(r, "portId")
	if err != nil {
		h.logger.Warn("GET /ports/{id}/intervals - Invalid port ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPortID)
		return
	}

	date := r.URL.Query().Get("date")
	intervals, err := h.service.ListActiveIntervals(r.Context(), portID, date)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			handlers.RespondNotFound(w, msgPortNotFound)
		case errors.Is(err, domain.ErrValidation):
			h.logger.Warn("GET /ports/{id}/intervals - Invalid date: %q", date)
			handlers.RespondBadRequest(w, msgInvalidDate)
		default:
			h.logger.Error("GET /ports/{id}/intervals - Failed to list intervals: port_id=%d, error=%v", portID, err)
			handlers.RespondDomainError(w, err, msgInvalidDate)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, intervals)
}

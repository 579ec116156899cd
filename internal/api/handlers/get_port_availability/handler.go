package get_port_availability

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

const (
	msgInvalidPortID    = "некорректный ID порта"
	msgMissingDate      = "дата обязательна"
	msgInvalidDate      = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidIntervals = "параметр intervals должен быть true или false"
	msgPortNotFound     = "порт не найден"
)

type Handler struct {
	service AvailabilityService
	logger  Logger
}

func NewHandler(service AvailabilityService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/ports/{portId}/availability
// Query params: date (required, YYYY-MM-DD), intervals (optional, default true)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Извлекаем portId из URL
	portID, err := handlers.PathID(r, "portId")
	if err != nil {
		h.logger.Warn("GET /ports/{id}/availability - Invalid port ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPortID)
		return
	}

	// Извлекаем date из query параметров
	date := r.URL.Query().Get("date")
	if date == "" {
		h.logger.Warn("GET /ports/{id}/availability - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	withIntervals := true
	if raw := r.URL.Query().Get("intervals"); raw != "" {
		withIntervals, err = strconv.ParseBool(raw)
		if err != nil {
			handlers.RespondBadRequest(w, msgInvalidIntervals)
			return
		}
	}

	result, err := h.service.PortAvailability(r.Context(), portID, date)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.logger.Warn("GET /ports/{id}/availability - Port not found: port_id=%d", portID)
			handlers.RespondNotFound(w, msgPortNotFound)

		case errors.Is(err, domain.ErrValidation):
			h.logger.Warn("GET /ports/{id}/availability - Invalid date: %q", date)
			handlers.RespondBadRequest(w, msgInvalidDate)

		default:
			h.logger.Error("GET /ports/{id}/availability - Failed to get availability: port_id=%d, error=%v",
				portID, err)
			handlers.RespondDomainError(w, err, msgInvalidDate)
		}
		return
	}

	h.logger.Info("GET /ports/{id}/availability - Availability retrieved: port_id=%d, date=%s, status=%s, busy=%d",
		portID, result.Date, result.Status, len(result.Busy))
	handlers.RespondJSON(w, http.StatusOK, FromServiceResponse(result, withIntervals))
}

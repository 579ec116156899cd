package get_station_availability

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

const (
	msgInvalidStationID = "некорректный ID станции"
	msgStationNotFound  = "станция не найдена"
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

// Handle GET /api/v1/stations/{stationId}/availability
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	stationID, err := handlers.PathID(r, "stationId")
	if err != nil {
		h.logger.Warn("GET /stations/{id}/availability - Invalid station ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStationID)
		return
	}

	result, err := h.service.StationAvailability(r.Context(), stationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("GET /stations/{id}/availability - Station not found: station_id=%d", stationID)
			handlers.RespondNotFound(w, msgStationNotFound)
			return
		}
		h.logger.Error("GET /stations/{id}/availability - Failed to get availability: station_id=%d, error=%v",
			stationID, err)
		handlers.RespondDomainError(w, err, msgStationNotFound)
		return
	}

	h.logger.Info("GET /stations/{id}/availability - Availability retrieved: station_id=%d, available=%d/%d",
		stationID, result.Available, len(result.Ports))
	handlers.RespondJSON(w, http.StatusOK, result)
}

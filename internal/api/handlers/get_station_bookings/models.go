package get_station_bookings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
// date задаёт один день и взаимоисключающа с startDate/endDate
func ToServiceRequest(
	stationID int64,
	actor domain.Actor,
	startDateStr string,
	endDateStr string,
	dateStr string,
	statusStr string,
	includeInactiveStr string,
) (*models.GetStationBookingsRequest, error) {
	req := &models.GetStationBookingsRequest{
		Actor:           actor,
		StationID:       stationID,
		IncludeInactive: false, // По умолчанию только активные
	}

	if dateStr != "" {
		if startDateStr != "" || endDateStr != "" {
			return nil, fmt.Errorf("date cannot be combined with startDate/endDate")
		}
		startDateStr, endDateStr = dateStr, dateStr
	}

	if startDateStr != "" {
		date, err := time.Parse(domain.DateFormat, startDateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate: %w", err)
		}
		req.StartDate = &date
	}

	if endDateStr != "" {
		date, err := time.Parse(domain.DateFormat, endDateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate: %w", err)
		}
		req.EndDate = &date
	}

	// Парсим status если указан
	if statusStr != "" {
		req.Status = &statusStr
	}

	// Парсим includeInactive если указан
	if includeInactiveStr != "" {
		includeInactive, err := strconv.ParseBool(includeInactiveStr)
		if err != nil {
			return nil, fmt.Errorf("invalid includeInactive value: %w", err)
		}
		req.IncludeInactive = includeInactive
	}

	return req, nil
}

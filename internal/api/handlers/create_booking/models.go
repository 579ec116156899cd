package create_booking

import (
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	requestBooking "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/request_booking"
)

// CreateBookingRequest HTTP request model
// Пользователь берётся из аутентификации, а не из тела
type CreateBookingRequest struct {
	PortID          int64   `json:"portId"`
	Date            string  `json:"date"`                      // "2025-10-15"
	StartTime       string  `json:"startTime"`                 // "10:00"
	EndTime         string  `json:"endTime,omitempty"`         // "11:30"
	DurationMinutes int     `json:"durationMinutes,omitempty"` // вместо endTime
	VehicleInfo     *string `json:"vehicleInfo,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty"`
}

// BookingResponse HTTP response model
type BookingResponse struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"userId"`
	StationID       int64   `json:"stationId"`
	PortID          int64   `json:"portId"`
	BookingDate     string  `json:"bookingDate"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationMinutes int     `json:"durationMinutes"`
	StartsAt        string  `json:"startsAt"`
	EndsAt          string  `json:"endsAt"`
	Status          string  `json:"status"`
	StationName     string  `json:"stationName"`
	PortLabel       string  `json:"portLabel"`
	ConnectorType   string  `json:"connectorType,omitempty"`
	VehicleInfo     *string `json:"vehicleInfo,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
// Разбор даты и времени выполняет use case
func (r *CreateBookingRequest) ToUseCaseRequest(userID int64) *requestBooking.Request {
	return &requestBooking.Request{
		UserID:          userID,
		PortID:          r.PortID,
		Date:            r.Date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
		VehicleInfo:     r.VehicleInfo,
		SpecialRequests: r.SpecialRequests,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *requestBooking.Response) *BookingResponse {
	return &BookingResponse{
		ID:              resp.ID,
		UserID:          resp.UserID,
		StationID:       resp.StationID,
		PortID:          resp.PortID,
		BookingDate:     resp.BookingDate.Format(domain.DateFormat),
		StartTime:       resp.StartTime.String(),
		EndTime:         resp.EndTime.String(),
		DurationMinutes: resp.DurationMinutes,
		StartsAt:        resp.StartsAt.Format(time.RFC3339),
		EndsAt:          resp.EndsAt.Format(time.RFC3339),
		Status:          resp.Status,
		StationName:     resp.StationName,
		PortLabel:       resp.PortLabel,
		ConnectorType:   resp.ConnectorType,
		VehicleInfo:     resp.VehicleInfo,
		SpecialRequests: resp.SpecialRequests,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       resp.UpdatedAt.Format(time.RFC3339),
	}
}

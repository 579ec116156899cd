package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/ptr"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Request модели

// PaymentResult сигнал платёжного провайдера для подтверждения
type PaymentResult struct {
	Success       bool
	Amount        float64
	Reference     string
	DeclineReason string
}

// GetUserBookingsRequest запрос на получение бронирований пользователя
type GetUserBookingsRequest struct {
	Actor  domain.Actor
	UserID int64
	Status *string
}

// GetStationBookingsRequest запрос на получение бронирований станции
type GetStationBookingsRequest struct {
	Actor           domain.Actor
	StationID       int64
	StartDate       *time.Time // Начало периода (опционально)
	EndDate         *time.Time // Конец периода (опционально)
	Status          *string    // Фильтр по статусу (опционально)
	IncludeInactive bool       // Включить завершённые и отменённые бронирования
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetStationBookingsRequest) ToDomainFilter() (domain.BookingsFilter, error) {
	filter := domain.BookingsFilter{
		StationID:       &r.StationID,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		IncludeInactive: r.IncludeInactive,
	}

	if r.Status != nil {
		status, err := ToDomainBookingStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"userId"`
	StationID       int64   `json:"stationId"`
	PortID          int64   `json:"portId"`
	BookingDate     string  `json:"bookingDate"` // "2025-10-15"
	StartTime       string  `json:"startTime"`   // "10:00"
	EndTime         string  `json:"endTime"`     // "11:30"
	DurationMinutes int     `json:"durationMinutes"`
	StartsAt        string  `json:"startsAt"` // ISO 8601
	EndsAt          string  `json:"endsAt"`   // ISO 8601
	Status          string  `json:"status"`
	VehicleInfo     *string `json:"vehicleInfo,omitempty"`
	SpecialRequests *string `json:"specialRequests,omitempty"`

	// Денормализованные данные каталога
	StationName    string `json:"stationName,omitempty"`
	StationAddress string `json:"stationAddress,omitempty"`
	PortLabel      string `json:"portLabel,omitempty"`
	ConnectorType  string `json:"connectorType,omitempty"`

	Amount             *float64 `json:"amount,omitempty"`
	PaymentRef         *string  `json:"paymentRef,omitempty"`
	CancellationReason *string  `json:"cancellationReason,omitempty"`
	CancelledBy        *int64   `json:"cancelledBy,omitempty"`
	ConfirmedAt        *string  `json:"confirmedAt,omitempty"`
	CompletedAt        *string  `json:"completedAt,omitempty"`
	CancelledAt        *string  `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// ActiveInterval интервал, занятый активным бронированием порта
type ActiveInterval struct {
	BookingID int64                `json:"bookingId"`
	Status    domain.BookingStatus `json:"status"`
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	return &BookingResponse{
		ID:                 b.ID,
		UserID:             b.UserID,
		StationID:          b.StationID,
		PortID:             b.PortID,
		BookingDate:        b.BookingDate.Format(domain.DateFormat),
		StartTime:          b.StartTime.String(),
		EndTime:            b.EndTime.String(),
		DurationMinutes:    b.DurationMinutes,
		StartsAt:           b.StartsAt.Format(time.RFC3339),
		EndsAt:             b.EndsAt.Format(time.RFC3339),
		Status:             string(b.Status),
		VehicleInfo:        b.VehicleInfo,
		SpecialRequests:    b.SpecialRequests,
		Amount:             b.Amount,
		PaymentRef:         b.PaymentRef,
		CancellationReason: b.CancellationReason,
		CancelledBy:        b.CancelledBy,
		ConfirmedAt:        formatTime(b.ConfirmedAt),
		CompletedAt:        formatTime(b.CompletedAt),
		CancelledAt:        formatTime(b.CancelledAt),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// WithCatalog дополняет ответ данными станции и порта
func (r *BookingResponse) WithCatalog(station *domain.Station, port *domain.Port) *BookingResponse {
	if station != nil {
		r.StationName = station.Name
		r.StationAddress = station.Address
	}
	if port != nil {
		r.PortLabel = port.Label
		r.ConnectorType = port.ConnectorType
	}
	return r
}

// ToDomainBookingStatus конвертирует строку в domain.BookingStatus с валидацией
func ToDomainBookingStatus(status string) (domain.BookingStatus, error) {
	s, ok := domain.ParseBookingStatus(status)
	if !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Конвертируем время в строку ISO 8601
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return ptr.Ptr(t.Format(time.RFC3339))
}

package confirm_booking

import (
	"context"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/payment"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
)

// BookingRepository интерфейс чтения бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// CatalogRepository интерфейс каталога станций и портов
type CatalogRepository interface {
	GetStation(ctx context.Context, id int64) (*domain.Station, error)
	GetPort(ctx context.Context, id int64) (*domain.Port, error)
}

// PaymentProvider платёжный провайдер
type PaymentProvider interface {
	Charge(ctx context.Context, charge payment.Charge) (*payment.Result, error)
	Refund(ctx context.Context, reference string) error
}

// BookingService переход pending -> confirmed
type BookingService interface {
	Confirm(ctx context.Context, bookingID int64, actor domain.Actor, result models.PaymentResult) (*models.BookingResponse, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

package bookings

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	LockPort(ctx context.Context, portID int64) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListActiveOverlapping(ctx context.Context, portID int64, start, end time.Time) ([]*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error)
	UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Booking, error)
}

// CatalogRepository интерфейс каталога станций и портов
type CatalogRepository interface {
	GetStation(ctx context.Context, id int64) (*domain.Station, error)
	GetPort(ctx context.Context, id int64) (*domain.Port, error)
	ListStations(ctx context.Context, ids []int64) ([]*domain.Station, error)
	ListPorts(ctx context.Context, ids []int64) ([]*domain.Port, error)
}

// PortStatusRefresher пересчитывает кешированный статус порта после перехода
type PortStatusRefresher interface {
	RefreshPort(ctx context.Context, stationID, portID int64)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчики операций с бронированиями
type Metrics interface {
	IncBookingOperation(operation, outcome string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

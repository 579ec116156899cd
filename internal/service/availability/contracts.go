package availability

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

// BookingRepository интерфейс чтения активных бронирований
type BookingRepository interface {
	LockPort(ctx context.Context, portID int64) error
	ListActiveOverlapping(ctx context.Context, portID int64, start, end time.Time) ([]*domain.Booking, error)
	ListActiveAt(ctx context.Context, portIDs []int64, at time.Time) ([]*domain.Booking, error)
}

// CatalogRepository интерфейс каталога станций и портов
type CatalogRepository interface {
	GetStation(ctx context.Context, id int64) (*domain.Station, error)
	GetPort(ctx context.Context, id int64) (*domain.Port, error)
	ListPortsByStation(ctx context.Context, stationID int64) ([]*domain.Port, error)
	UpdatePortStatus(ctx context.Context, portID int64, status domain.PortStatus) error
}

// TransactionManager короткая транзакция пересчёта статуса порта
// Уровень изоляции по умолчанию: после ожидания блокировки порта запросы видят свежие коммиты.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Cache key-value кеш с TTL для снимков доступности станций
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Incr(ctx context.Context, key string) (int64, error)
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

package request_booking

import (
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/types"
)

// Settings ограничения бронирования из конфигурации
type Settings struct {
	Bounds             timewindow.Bounds
	Location           *time.Location
	MaxActivePerUser   int // 0 - без ограничения
	AdvanceBookingDays int // 0 - без ограничения
	AllowPastWindows   bool
	CatalogRetry       retry.Config
}

// Request модель запроса на бронирование порта
type Request struct {
	UserID          int64   // ID пользователя из аутентификации
	PortID          int64   // ID порта
	Date            string  // Дата "2025-10-15" в часовом поясе платформы
	StartTime       string  // Время начала "10:00"
	EndTime         string  // Время окончания (взаимоисключающе с DurationMinutes)
	DurationMinutes int     // Длительность в минутах
	VehicleInfo     *string // Автомобиль (если не указан, берётся выбранный в UserService)
	SpecialRequests *string // Пожелания (опционально)
}

// Response модель ответа с созданным бронированием
type Response struct {
	ID              int64            // ID созданного бронирования
	UserID          int64            // ID пользователя
	StationID       int64            // ID станции
	PortID          int64            // ID порта
	BookingDate     time.Time        // Дата бронирования
	StartTime       types.TimeString // Время начала
	EndTime         types.TimeString // Время окончания
	DurationMinutes int              // Длительность в минутах
	StartsAt        time.Time        // Начало интервала
	EndsAt          time.Time        // Конец интервала (не включается)
	Status          string           // Статус бронирования

	// Денормализованные данные
	StationName     string  // Название станции
	PortLabel       string  // Метка порта
	ConnectorType   string  // Тип разъёма
	VehicleInfo     *string // Автомобиль
	SpecialRequests *string // Пожелания

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}

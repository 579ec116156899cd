package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
)

// EnvConfigPath переменная окружения с путём к конфигурации
const EnvConfigPath = "CONFIG_PATH"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	PaymentFake   = "fake"
	PaymentStripe = "stripe"
)

// ErrInvalidConfig возвращается, если конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("invalid config")

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Storage     StorageConfig     `toml:"storage"`
	Booking     BookingConfig     `toml:"booking"`
	Auth        AuthConfig        `toml:"auth"`
	Payment     PaymentConfig     `toml:"payment"`
	UserService UserServiceConfig `toml:"user_service"`
	Redis       RedisConfig       `toml:"redis"`
	Retry       RetryConfig       `toml:"retry"`
	Catalog     CatalogConfig     `toml:"catalog"`
}

// ServerConfig HTTP сервер, таймауты в секундах
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig подключение к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // пусто - stdout
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// StorageConfig хранилище бронирований и каталога: memory или postgres
type StorageConfig struct {
	Driver string `toml:"driver"`
}

// BookingConfig правила бронирования
type BookingConfig struct {
	MinDurationMinutes int    `toml:"min_duration_minutes"`
	MaxDurationMinutes int    `toml:"max_duration_minutes"`
	TimeZone           string `toml:"timezone"`
	MaxActivePerUser   int    `toml:"max_active_per_user"`  // 0 - без ограничения
	AdvanceBookingDays int    `toml:"advance_booking_days"` // 0 - без ограничения
	AllowPastWindows   bool   `toml:"allow_past_windows"`
}

// Location часовой пояс платформы
func (b BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.TimeZone)
}

// AuthConfig если JWTSecret пуст, доверяем заголовкам X-User-ID / X-User-Role от gateway
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// PaymentConfig платёжный провайдер
type PaymentConfig struct {
	Provider     string  `toml:"provider"`
	Currency     string  `toml:"currency"`
	DeclineAbove float64 `toml:"decline_above"` // только для fake

	StripeAPIKey        string `toml:"stripe_api_key"`
	StripePaymentMethod string `toml:"stripe_payment_method"`
	StripeBackendURL    string `toml:"stripe_backend_url"`
}

// UserServiceConfig клиент UserService; пустой URL отключает подстановку автомобиля
type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

// RedisConfig кеш доступности станций; пустой Addr отключает кеш
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      int    `toml:"ttl"` // секунды
}

// RetryConfig повторы транзиентных ошибок (сериализация, каталог, внешние сервисы)
type RetryConfig struct {
	MaxAttempts       int `toml:"max_attempts"`
	InitialIntervalMs int `toml:"initial_interval_ms"`
	MaxIntervalMs     int `toml:"max_interval_ms"`
}

// ToRetry конвертирует в настройки pkg/retry
func (r RetryConfig) ToRetry() retry.Config {
	return retry.Config{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: time.Duration(r.InitialIntervalMs) * time.Millisecond,
		MaxInterval:     time.Duration(r.MaxIntervalMs) * time.Millisecond,
	}
}

// CatalogConfig начальный каталог для memory хранилища
type CatalogConfig struct {
	Stations []StationSeed `toml:"stations"`
}

type StationSeed struct {
	ID             int64      `toml:"id"`
	Name           string     `toml:"name"`
	Address        string     `toml:"address"`
	Description    string     `toml:"description"`
	Latitude       float64    `toml:"latitude"`
	Longitude      float64    `toml:"longitude"`
	PricePerKWh    float64    `toml:"price_per_kwh"`
	PowerKW        float64    `toml:"power_kw"`
	ConnectorTypes []string   `toml:"connector_types"`
	OwnerID        *int64     `toml:"owner_id"`
	Ports          []PortSeed `toml:"ports"`
}

type PortSeed struct {
	ID            int64   `toml:"id"`
	Label         string  `toml:"label"`
	ConnectorType string  `toml:"connector_type"`
	PowerKW       float64 `toml:"power_kw"`
	Status        string  `toml:"status"`
}

// Load читает конфигурацию из файла
// Путь из CONFIG_PATH имеет приоритет над path
func Load(path string) (*Config, error) {
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "charging-reservation-service"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}

	if c.Booking.MinDurationMinutes == 0 {
		c.Booking.MinDurationMinutes = domain.DefaultMinDurationMinutes
	}
	if c.Booking.MaxDurationMinutes == 0 {
		c.Booking.MaxDurationMinutes = domain.DefaultMaxDurationMinutes
	}
	if c.Booking.TimeZone == "" {
		c.Booking.TimeZone = domain.DefaultTimeZone
	}

	if c.Payment.Provider == "" {
		c.Payment.Provider = PaymentFake
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "usd"
	}
	if c.Payment.StripePaymentMethod == "" {
		c.Payment.StripePaymentMethod = "pm_card_visa"
	}

	if c.UserService.Timeout == 0 {
		c.UserService.Timeout = 5
	}

	if c.Redis.TTL == 0 {
		c.Redis.TTL = 30
	}

	defaults := retry.DefaultConfig()
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaults.MaxAttempts
	}
	if c.Retry.InitialIntervalMs == 0 {
		c.Retry.InitialIntervalMs = int(defaults.InitialInterval / time.Millisecond)
	}
	if c.Retry.MaxIntervalMs == 0 {
		c.Retry.MaxIntervalMs = int(defaults.MaxInterval / time.Millisecond)
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.http_port %d out of range", c.Server.HTTPPort))
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be %q or %q", StorageMemory, StoragePostgres))
	}

	if c.Booking.MinDurationMinutes < 0 || c.Booking.MaxDurationMinutes < c.Booking.MinDurationMinutes {
		problems = append(problems, "booking duration bounds are inconsistent")
	}
	if c.Booking.MaxActivePerUser < 0 {
		problems = append(problems, "booking.max_active_per_user must not be negative")
	}
	if c.Booking.AdvanceBookingDays < 0 {
		problems = append(problems, "booking.advance_booking_days must not be negative")
	}
	if _, err := c.Booking.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("booking.timezone: %v", err))
	}

	switch c.Payment.Provider {
	case PaymentFake:
	case PaymentStripe:
		if c.Payment.StripeAPIKey == "" {
			problems = append(problems, "payment.stripe_api_key is required for stripe provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("payment.provider must be %q or %q", PaymentFake, PaymentStripe))
	}

	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}

	stations := make(map[int64]bool)
	ports := make(map[int64]bool)
	for _, s := range c.Catalog.Stations {
		if s.ID <= 0 || stations[s.ID] {
			problems = append(problems, fmt.Sprintf("catalog: invalid or duplicate station id %d", s.ID))
		}
		stations[s.ID] = true
		for _, p := range s.Ports {
			if p.ID <= 0 || ports[p.ID] {
				problems = append(problems, fmt.Sprintf("catalog: invalid or duplicate port id %d", p.ID))
			}
			ports[p.ID] = true
			switch domain.PortStatus(p.Status) {
			case "", domain.PortAvailable, domain.PortInUse, domain.PortMaintenance:
			default:
				problems = append(problems, fmt.Sprintf("catalog: port %d has unknown status %q", p.ID, p.Status))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

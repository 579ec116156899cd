package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers"
	createBookingHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/create_booking"
	getBookingHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_booking"
	getPortAvailabilityHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_port_availability"
	getPortIntervalsHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_port_intervals"
	getStationAvailabilityHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_station_availability"
	getStationBookingsHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_station_bookings"
	getUserBookingsHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/get_user_bookings"
	updateBookingStatusHandler "github.com/m04kA/SMC-ChargingReservationService/internal/api/handlers/update_booking_status"
	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/config"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/infra/cache"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/payment"
	userServiceClient "github.com/m04kA/SMC-ChargingReservationService/internal/integrations/userservice"
	availabilityService "github.com/m04kA/SMC-ChargingReservationService/internal/service/availability"
	bookingsService "github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
	confirmBookingUC "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/confirm_booking"
	requestBookingUC "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/request_booking"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/metrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/ptr"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/txmanager"
)

// storage общий набор зависимостей для memory и postgres хранилищ
type storage struct {
	bookings interface {
		requestBookingUC.BookingRepository
		bookingsService.BookingRepository
		availabilityService.BookingRepository
	}
	catalog interface {
		requestBookingUC.CatalogRepository
		bookingsService.CatalogRepository
		availabilityService.CatalogRepository
	}
	txManager interface {
		Do(ctx context.Context, fn func(ctx context.Context) error) error
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	close func() error
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ChargingReservationService...")

	loc, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal("Failed to load timezone %s: %v", cfg.Booking.TimeZone, err)
	}
	retryCfg := cfg.Retry.ToRetry()

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Инициализируем хранилище
	var store *storage
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		store = openPostgres(cfg, metricsCollector, stopMetricsCh, log)
	default:
		store = openMemory(cfg, log)
	}
	defer store.close()

	// Кеш доступности станций (опционально)
	var availabilityCache availabilityService.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Redis unavailable at %s, availability cache disabled: %v", cfg.Redis.Addr, err)
		} else {
			redisCache := cache.NewRedisCache(redisClient, time.Duration(cfg.Redis.TTL)*time.Second)
			defer redisCache.Close()
			availabilityCache = redisCache
			log.Info("Availability cache enabled (redis=%s, ttl=%ds)", cfg.Redis.Addr, cfg.Redis.TTL)
		}
	}

	// Инициализируем интеграционных клиентов
	var userClient requestBookingUC.UserServiceClient
	if cfg.UserService.URL != "" {
		userClient = userServiceClient.NewClient(
			cfg.UserService.URL,
			time.Duration(cfg.UserService.Timeout)*time.Second,
			retryCfg,
			log,
		)
		log.Info("UserService client initialized (url=%s, timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)
	}

	var paymentProvider confirmBookingUC.PaymentProvider
	switch cfg.Payment.Provider {
	case config.PaymentStripe:
		paymentProvider = payment.NewStripe(payment.StripeConfig{
			APIKey:        cfg.Payment.StripeAPIKey,
			Currency:      cfg.Payment.Currency,
			PaymentMethod: cfg.Payment.StripePaymentMethod,
			BackendURL:    cfg.Payment.StripeBackendURL,
		}, retryCfg, log)
	default:
		paymentProvider = payment.NewFake(cfg.Payment.DeclineAbove)
	}
	log.Info("Payment provider: %s (currency=%s)", cfg.Payment.Provider, cfg.Payment.Currency)

	// Инициализируем сервисы
	availabilitySvc := availabilityService.NewService(
		store.bookings,
		store.catalog,
		store.txManager,
		availabilityCache,
		loc,
		log,
	)
	bookingSvc := bookingsService.NewService(
		store.bookings,
		store.catalog,
		store.txManager,
		availabilitySvc,
		metricsCollector,
		loc,
		log,
	)

	// Инициализируем use cases
	requestBookingUseCase := requestBookingUC.NewUseCase(
		store.bookings,
		store.catalog,
		userClient,
		availabilitySvc,
		store.txManager,
		metricsCollector,
		requestBookingUC.Settings{
			Bounds: timewindow.Bounds{
				MinDuration: time.Duration(cfg.Booking.MinDurationMinutes) * time.Minute,
				MaxDuration: time.Duration(cfg.Booking.MaxDurationMinutes) * time.Minute,
			},
			Location:           loc,
			MaxActivePerUser:   cfg.Booking.MaxActivePerUser,
			AdvanceBookingDays: cfg.Booking.AdvanceBookingDays,
			AllowPastWindows:   cfg.Booking.AllowPastWindows,
			CatalogRetry:       retryCfg,
		},
		log,
	)
	confirmBookingUseCase := confirmBookingUC.NewUseCase(
		store.bookings,
		store.catalog,
		paymentProvider,
		bookingSvc,
		cfg.Payment.Currency,
		log,
	)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(requestBookingUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(bookingSvc, confirmBookingUseCase, log)
	getStationBookings := getStationBookingsHandler.NewHandler(bookingSvc, log)
	getPortIntervals := getPortIntervalsHandler.NewHandler(bookingSvc, log)
	getPortAvailability := getPortAvailabilityHandler.NewHandler(availabilitySvc, log)
	getStationAvailability := getStationAvailabilityHandler.NewHandler(availabilitySvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Доступность порта на дату
	api.HandleFunc("/ports/{portId}/availability", getPortAvailability.Handle).Methods(http.MethodGet)

	// Занятые интервалы порта на дату
	api.HandleFunc("/ports/{portId}/intervals", getPortIntervals.Handle).Methods(http.MethodGet)

	// Статусы портов станции сейчас
	api.HandleFunc("/stations/{stationId}/availability", getStationAvailability.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (JWT или X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(cfg.Auth.JWTSecret))

	// --- Бронирования ---
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings", getUserBookings.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}/status", updateBookingStatus.Handle).Methods(http.MethodPatch)

	// --- Для владельцев станций ---
	protected.HandleFunc("/stations/{stationId}/bookings", getStationBookings.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s (storage=%s, timezone=%s)", addr, cfg.Storage.Driver, loc)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

func openPostgres(cfg *config.Config, m *metrics.Metrics, stopCh <-chan struct{}, log *logger.Logger) *storage {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Без метрик обёртка работает как прозрачный прокси
	var wrappedDB *dbmetrics.DB
	if m != nil {
		wrappedDB = dbmetrics.WrapWithDefault(db, m, cfg.Metrics.ServiceName, stopCh)
		log.Info("Database metrics collection started")
	} else {
		wrappedDB = dbmetrics.Wrap(db, nil, cfg.Metrics.ServiceName)
	}

	if len(cfg.Catalog.Stations) > 0 {
		log.Warn("catalog section is ignored for postgres storage, stations are managed in the database")
	}

	return &storage{
		bookings:  bookingRepo.NewRepository(wrappedDB),
		catalog:   catalogRepo.NewRepository(wrappedDB),
		txManager: txmanager.NewTransactionManager(wrappedDB, cfg.Retry.ToRetry()),
		close:     db.Close,
	}
}

func openMemory(cfg *config.Config, log *logger.Logger) *storage {
	store := memory.NewStore()

	ports := 0
	for _, s := range cfg.Catalog.Stations {
		station := domain.Station{
			ID:             s.ID,
			Name:           s.Name,
			Address:        s.Address,
			Latitude:       s.Latitude,
			Longitude:      s.Longitude,
			PricePerKWh:    s.PricePerKWh,
			PowerKW:        s.PowerKW,
			ConnectorTypes: s.ConnectorTypes,
			OwnerID:        s.OwnerID,
		}
		if s.Description != "" {
			station.Description = ptr.Ptr(s.Description)
		}
		store.AddStation(station)

		for _, p := range s.Ports {
			_, err := store.AddPort(domain.Port{
				ID:            p.ID,
				StationID:     s.ID,
				Label:         p.Label,
				ConnectorType: p.ConnectorType,
				PowerKW:       p.PowerKW,
				Status:        domain.PortStatus(p.Status),
			})
			if err != nil {
				log.Fatal("Failed to seed port %d: %v", p.ID, err)
			}
			ports++
		}
	}
	log.Info("In-memory storage initialized (stations=%d, ports=%d)", len(cfg.Catalog.Stations), ports)

	return &storage{
		bookings:  store,
		catalog:   store,
		txManager: store,
		close:     func() error { return nil },
	}
}

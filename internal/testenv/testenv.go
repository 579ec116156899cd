// Package testenv поднимает PostgreSQL и Redis для интеграционных тестов.
//
// Если заданы DATABASE_URL / REDIS_URL, используются внешние сервисы (CI),
// иначе контейнеры testcontainers-go, по одному на тестовый бинарник.
// Контейнеры убирает Ryuk после завершения процесса. С внешней базой
// пакеты нужно запускать последовательно (go test -p 1): таблицы очищаются перед каждым тестом.
package testenv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"

	startupTimeout = 2 * time.Minute
)

var (
	pgOnce sync.Once
	pgDB   *sql.DB
	pgErr  error

	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// Postgres возвращает соединение с базой, к которой применена migrations/001_init.sql
// Перед возвратом все таблицы очищаются.
func Postgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	pgOnce.Do(func() {
		pgDB, pgErr = openPostgres(dsn)
	})
	require.NoError(t, pgErr, "postgres test environment")

	Truncate(t, pgDB)
	return pgDB
}

// Redis возвращает клиент пустой базы Redis
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	url := os.Getenv("REDIS_URL")
	if url == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	redisOnce.Do(func() {
		redisClient, redisErr = openRedis(url)
	})
	require.NoError(t, redisErr, "redis test environment")

	require.NoError(t, redisClient.FlushDB(context.Background()).Err())
	return redisClient
}

// Truncate очищает таблицы и сбрасывает последовательности ID
func Truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE TABLE bookings, ports, stations RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

// SeedStation добавляет станцию и возвращает её ID
func SeedStation(t *testing.T, db *sql.DB, name string, pricePerKWh float64) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO stations (name, address, latitude, longitude, price_per_kwh, power_kw, connector_types)
		 VALUES ($1, $2, 55.75, 37.61, $3, 50, '{CCS2,Type2}') RETURNING id`,
		name, name+" street 1", pricePerKWh,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedPort добавляет порт станции и возвращает его ID
func SeedPort(t *testing.T, db *sql.DB, stationID int64, label, connectorType, status string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO ports (station_id, label, connector_type, power_kw, status)
		 VALUES ($1, $2, $3, 50, $4) RETURNING id`,
		stationID, label, connectorType, status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// MigrationPath путь к схеме базы относительно корня модуля
func MigrationPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "001_init.sql")
}

func openPostgres(dsn string) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	external := dsn != ""
	if !external {
		container, err := postgres.Run(ctx, postgresImage,
			postgres.WithDatabase("reservations_test"),
			postgres.WithUsername("reservations"),
			postgres.WithPassword("reservations_test"),
			postgres.WithInitScripts(MigrationPath()),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			return nil, fmt.Errorf("start postgres container: %w", err)
		}

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return nil, fmt.Errorf("postgres connection string: %w", err)
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Внешней базе схему накатываем сами; скрипт идемпотентен
	if external {
		schema, err := os.ReadFile(MigrationPath())
		if err != nil {
			return nil, fmt.Errorf("read migration: %w", err)
		}
		if _, err := db.ExecContext(ctx, string(schema)); err != nil {
			return nil, fmt.Errorf("apply migration: %w", err)
		}
	}

	return db, nil
}

func openRedis(url string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if url == "" {
		container, err := tcredis.Run(ctx, redisImage)
		if err != nil {
			return nil, fmt.Errorf("start redis container: %w", err)
		}

		url, err = container.ConnectionString(ctx)
		if err != nil {
			return nil, fmt.Errorf("redis connection string: %w", err)
		}
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

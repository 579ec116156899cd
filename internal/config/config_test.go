package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 30, cfg.Booking.MinDurationMinutes)
	assert.Equal(t, 120, cfg.Booking.MaxDurationMinutes)
	assert.Equal(t, "UTC", cfg.Booking.TimeZone)
	assert.False(t, cfg.Booking.AllowPastWindows)
	assert.Equal(t, PaymentFake, cfg.Payment.Provider)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	r := cfg.Retry.ToRetry()
	assert.Equal(t, 3, r.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, r.InitialInterval)
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
[server]
http_port = 9090

[storage]
driver = "postgres"

[database]
host = "db"
dbname = "reservations"
user = "svc"
password = "secret"

[booking]
min_duration_minutes = 15
max_duration_minutes = 240
timezone = "Europe/Moscow"
max_active_per_user = 3
allow_past_windows = true

[payment]
provider = "stripe"
stripe_api_key = "sk_test_123"

[[catalog.stations]]
id = 1
name = "Central"
price_per_kwh = 0.35
owner_id = 100

  [[catalog.stations.ports]]
  id = 11
  label = "A"
  connector_type = "CCS2"
  power_kw = 150.0

  [[catalog.stations.ports]]
  id = 12
  label = "B"
  status = "maintenance"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "host=db port=5432 user=svc password=secret dbname=reservations sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 3, cfg.Booking.MaxActivePerUser)
	assert.True(t, cfg.Booking.AllowPastWindows)

	loc, err := cfg.Booking.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())

	require.Len(t, cfg.Catalog.Stations, 1)
	station := cfg.Catalog.Stations[0]
	require.NotNil(t, station.OwnerID)
	assert.Equal(t, int64(100), *station.OwnerID)
	require.Len(t, station.Ports, 2)
	assert.Equal(t, 150.0, station.Ports[0].PowerKW)
	assert.Equal(t, "maintenance", station.Ports[1].Status)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "[server]\nhttp_port = 7070\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("does-not-exist.toml")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown storage":    "[storage]\ndriver = \"mongo\"\n",
		"postgres w/o host":  "[storage]\ndriver = \"postgres\"\n",
		"bounds":             "[booking]\nmin_duration_minutes = 90\nmax_duration_minutes = 60\n",
		"timezone":           "[booking]\ntimezone = \"Mars/Olympus\"\n",
		"stripe without key": "[payment]\nprovider = \"stripe\"\n",
		"duplicate port":     "[[catalog.stations]]\nid = 1\n[[catalog.stations.ports]]\nid = 5\n[[catalog.stations.ports]]\nid = 5\n",
		"port status":        "[[catalog.stations]]\nid = 1\n[[catalog.stations.ports]]\nid = 5\nstatus = \"broken\"\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(writeConfig(t, "[server\n"))
	assert.Error(t, err)
}

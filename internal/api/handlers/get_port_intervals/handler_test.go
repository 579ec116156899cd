package get_port_intervals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
)

type noopRefresher struct{}

func (noopRefresher) RefreshPort(context.Context, int64, int64) {}

func TestHandle(t *testing.T) {
	store := memory.NewStore()
	store.AddStation(domain.Station{ID: 1})
	_, err := store.AddPort(domain.Port{ID: 11, StationID: 1})
	require.NoError(t, err)

	// пересекает полночь и попадает в обе даты
	for _, start := range []time.Time{
		time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	} {
		_, err := store.Create(context.Background(), &domain.Booking{
			UserID: 1, StationID: 1, PortID: 11,
			StartsAt: start, EndsAt: start.Add(time.Hour), Status: domain.StatusPending,
		})
		require.NoError(t, err)
	}

	log := logger.NewNop()
	svc := bookings.NewService(store, store, store, noopRefresher{}, nil, time.UTC, log)
	router := mux.NewRouter()
	router.HandleFunc("/ports/{portId}/intervals", NewHandler(svc, log).Handle)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/ports/11/intervals?date=2024-06-01")
	require.Equal(t, http.StatusOK, w.Code)
	var day1 []models.ActiveInterval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day1))
	require.Len(t, day1, 2)
	assert.Equal(t, 9, day1[0].Start.Hour(), "ordered by start")

	w = get("/ports/11/intervals?date=2024-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	var day2 []models.ActiveInterval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day2))
	require.Len(t, day2, 1)
	assert.Equal(t, int64(1), day2[0].BookingID)

	assert.Equal(t, http.StatusBadRequest, get("/ports/11/intervals").Code)
	assert.Equal(t, http.StatusNotFound, get("/ports/404/intervals?date=2024-06-01").Code)
	assert.Equal(t, http.StatusBadRequest, get("/ports/abc/intervals?date=2024-06-01").Code)
}

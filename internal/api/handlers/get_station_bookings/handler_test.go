package get_station_bookings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
)

type stubService struct {
	got *models.GetStationBookingsRequest
	err error
}

func (s *stubService) GetStationBookings(_ context.Context, req *models.GetStationBookingsRequest) (*models.BookingListResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.BookingListResponse{Bookings: []models.BookingResponse{{ID: 1}}}, nil
}

func TestToServiceRequest(t *testing.T) {
	owner := domain.Actor{UserID: 100, Role: domain.RoleStationOwner}

	req, err := ToServiceRequest(1, owner, "2025-06-01", "2025-06-07", "", "confirmed", "true")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *req.StartDate)
	assert.Equal(t, time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), *req.EndDate)
	assert.Equal(t, "confirmed", *req.Status)
	assert.True(t, req.IncludeInactive)
	assert.Equal(t, owner, req.Actor)

	req, err = ToServiceRequest(1, owner, "", "", "2025-06-03", "", "")
	require.NoError(t, err)
	assert.Equal(t, *req.StartDate, *req.EndDate)
	assert.False(t, req.IncludeInactive)

	for _, args := range [][5]string{
		{"06/01/2025", "", "", "", ""},
		{"", "tomorrow", "", "", ""},
		{"2025-06-01", "", "2025-06-03", "", ""},
		{"", "", "", "", "maybe"},
	} {
		_, err := ToServiceRequest(1, owner, args[0], args[1], args[2], args[3], args[4])
		assert.Error(t, err, "%v", args)
	}
}

func TestHandle(t *testing.T) {
	owner := domain.Actor{UserID: 100, Role: domain.RoleStationOwner}

	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"ok", "/stations/1/bookings?date=2025-06-01", nil, http.StatusOK},
		{"bad station", "/stations/x/bookings", nil, http.StatusBadRequest},
		{"bad params", "/stations/1/bookings?includeInactive=maybe", nil, http.StatusBadRequest},
		{"not owner", "/stations/1/bookings", bookings.ErrAccessDenied, http.StatusForbidden},
		{"no station", "/stations/1/bookings", bookings.ErrStationNotFound, http.StatusNotFound},
		{"bad range", "/stations/1/bookings", bookings.ErrInvalidInput, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			router := mux.NewRouter()
			router.HandleFunc("/stations/{stationId}/bookings", NewHandler(svc, logger.NewNop()).Handle)

			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r = r.WithContext(middleware.WithActor(r.Context(), owner))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

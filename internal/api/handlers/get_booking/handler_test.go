package get_booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
)

type stubService struct {
	err error
}

func (s stubService) GetByID(_ context.Context, id int64, _ domain.Actor) (*models.BookingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.BookingResponse{ID: id, Status: "pending"}, nil
}

func TestHandle(t *testing.T) {
	actor := domain.Actor{UserID: 1, Role: domain.RoleUser}

	tests := []struct {
		name   string
		path   string
		err    error
		auth   bool
		status int
	}{
		{"ok", "/bookings/5", nil, true, http.StatusOK},
		{"bad id", "/bookings/x", nil, true, http.StatusBadRequest},
		{"zero id", "/bookings/0", nil, true, http.StatusBadRequest},
		{"unauthenticated", "/bookings/5", nil, false, http.StatusUnauthorized},
		{"not found", "/bookings/5", bookings.ErrBookingNotFound, true, http.StatusNotFound},
		{"forbidden", "/bookings/5", bookings.ErrAccessDenied, true, http.StatusForbidden},
		{"storage down", "/bookings/5", bookings.ErrInternal, true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := mux.NewRouter()
			router.HandleFunc("/bookings/{bookingId}", NewHandler(stubService{err: tt.err}, logger.NewNop()).Handle)

			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth {
				r = r.WithContext(middleware.WithActor(r.Context(), actor))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

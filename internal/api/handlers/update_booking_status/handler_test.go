package update_booking_status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/api/middleware"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/payment"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
	confirmBooking "github.com/m04kA/SMC-ChargingReservationService/internal/usecase/confirm_booking"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/logger"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/ptr"
)

const (
	driverID = int64(7)
	ownerID  = int64(100)
)

var (
	driver = domain.Actor{UserID: driverID, Role: domain.RoleUser}
	owner  = domain.Actor{UserID: ownerID, Role: domain.RoleStationOwner}
)

type noopRefresher struct{}

func (noopRefresher) RefreshPort(context.Context, int64, int64) {}

type fixture struct {
	store    *memory.Store
	provider *payment.Fake
	router   *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddStation(domain.Station{ID: 1, Name: "Central", PricePerKWh: 0.5, PowerKW: 22, OwnerID: ptr.Ptr(ownerID)})
	_, err := store.AddPort(domain.Port{ID: 11, StationID: 1, Label: "A"})
	require.NoError(t, err)

	log := logger.NewNop()
	svc := bookings.NewService(store, store, store, noopRefresher{}, nil, time.UTC, log)
	provider := payment.NewFake(0)
	confirm := confirmBooking.NewUseCase(store, store, provider, svc, "usd", log)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/bookings/{bookingId}/status", NewHandler(svc, confirm, log).Handle).Methods(http.MethodPatch)

	return &fixture{store: store, provider: provider, router: router}
}

func (f *fixture) book(t *testing.T) *domain.Booking {
	t.Helper()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	b, err := f.store.Create(context.Background(), &domain.Booking{
		UserID:      driverID,
		StationID:   1,
		PortID:      11,
		BookingDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		StartsAt:    start,
		EndsAt:      start.Add(time.Hour),
		Status:      domain.StatusPending,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) patch(id string, body string, actor *domain.Actor) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/"+id+"/status", strings.NewReader(body))
	if actor != nil {
		r = r.WithContext(middleware.WithActor(r.Context(), *actor))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func TestHandle_ConfirmThenComplete(t *testing.T) {
	f := newFixture(t)
	b := f.book(t)
	id := "1"
	require.Equal(t, int64(1), b.ID)

	w := f.patch(id, `{"status":"confirmed"}`, &owner)
	assert.Equal(t, http.StatusForbidden, w.Code, "only the payer confirms")
	assert.Empty(t, f.provider.Charges())

	w = f.patch(id, `{"status":"confirmed"}`, &driver)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)
	require.NotNil(t, resp.Amount)
	assert.Equal(t, 11.0, *resp.Amount)

	w = f.patch(id, `{"status":"confirmed"}`, &driver)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.patch(id, `{"status":"completed"}`, &driver)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.patch(id, `{"status":"completed"}`, &owner)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.patch(id, `{"status":"cancelled"}`, &driver)
	assert.Equal(t, http.StatusConflict, w.Code, "terminal bookings cannot be cancelled")
}

func TestHandle_Cancel(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	stranger := domain.Actor{UserID: 55, Role: domain.RoleUser}
	w := f.patch("1", `{"status":"cancelled"}`, &stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.patch("1", `{"status":"cancelled","reason":"plans changed"}`, &driver)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := f.store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancellationReason)
	assert.Equal(t, "plans changed", *stored.CancellationReason)
}

func TestHandle_PaymentDeclined(t *testing.T) {
	f := newFixture(t)
	f.book(t)
	f.provider.DeclineUsers[driverID] = true

	w := f.patch("1", `{"status":"confirmed"}`, &driver)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	stored, err := f.store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
}

func TestHandle_BadRequests(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	tests := []struct {
		name   string
		id     string
		body   string
		actor  *domain.Actor
		status int
	}{
		{"bad id", "abc", `{"status":"cancelled"}`, &driver, http.StatusBadRequest},
		{"unauthenticated", "1", `{"status":"cancelled"}`, nil, http.StatusUnauthorized},
		{"broken body", "1", `{`, &driver, http.StatusBadRequest},
		{"unknown status", "1", `{"status":"paused"}`, &driver, http.StatusBadRequest},
		{"back to pending", "1", `{"status":"pending"}`, &driver, http.StatusBadRequest},
		{"reason too long", "1", `{"status":"cancelled","reason":"` + strings.Repeat("x", domain.MaxCancellationReasonLength+1) + `"}`, &driver, http.StatusBadRequest},
		{"unknown booking", "404", `{"status":"cancelled"}`, &driver, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.patch(tt.id, tt.body, tt.actor)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

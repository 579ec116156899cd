package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/metrics"
)

const secret = "test-secret"

func echoActor(t *testing.T, got *domain.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		*got = actor
		w.WriteHeader(http.StatusNoContent)
	})
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuth_Headers(t *testing.T) {
	var got domain.Actor
	h := Auth("")(echoActor(t, &got))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUserID, "42")
	r.Header.Set(HeaderUserRole, "station_owner")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, domain.Actor{UserID: 42, Role: domain.RoleStationOwner}, got)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUserID, "7")
	r.Header.Set(HeaderUserRole, "system")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, domain.RoleUser, got.Role, "system role is never granted from outside")

	for _, id := range []string{"", "abc", "-1", "0"} {
		r = httptest.NewRequest(http.MethodGet, "/", nil)
		if id != "" {
			r.Header.Set(HeaderUserID, id)
		}
		w = httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "X-User-ID=%q", id)
	}
}

func TestAuth_JWT(t *testing.T) {
	var got domain.Actor
	h := Auth(secret)(echoActor(t, &got))

	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub":  "15",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+valid)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, domain.Actor{UserID: 15, Role: domain.RoleAdmin}, got)

	numeric := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": 16})
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer "+numeric)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, domain.Actor{UserID: 16, Role: domain.RoleUser}, got)

	rejected := map[string]string{
		"missing header": "",
		"not bearer":     "Basic " + valid,
		"wrong secret":   "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "15"}),
		"wrong method":   "Bearer " + sign(t, jwt.SigningMethodHS384, []byte(secret), jwt.MapClaims{"sub": "15"}),
		"expired":        "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "15", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "admin"}),
	}
	for name, header := range rejected {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			r.Header.Set(HeaderUserID, "15")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	const incoming = "0f8fad5b-d9cb-469f-a165-70867728950e"
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, incoming)
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, incoming, seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.NotEqual(t, "<script>", seen)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg, "test")

	router := mux.NewRouter()
	router.Use(MetricsMiddleware(m))
	router.HandleFunc("/bookings/{bookingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bookings/"+id, nil))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "http_requests_total") {
			continue
		}
		found = true
		require.Len(t, f.GetMetric(), 1, "one series per route template")
		assert.Equal(t, 3.0, f.GetMetric()[0].GetCounter().GetValue())
	}
	assert.True(t, found)
}

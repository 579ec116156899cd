package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: bad date", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: card", domain.ErrPaymentDeclined), http.StatusPaymentRequired},
		{fmt.Errorf("%w: booking", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: port", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: slot", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: cancelled", domain.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("%w: db", domain.ErrDependency), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromError(tt.err), "%v", tt.err)
	}
}

func TestRespondDomainError_HidesServerErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondDomainError(w, fmt.Errorf("%w: pq: connection refused", domain.ErrDependency), "details")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "pq")

	w = httptest.NewRecorder()
	RespondDomainError(w, fmt.Errorf("%w: slot", domain.ErrConflict), "слот занят")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Code: http.StatusConflict, Message: "слот занят"}, body)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}

	var p payload
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"cancelled"}`))
	require.NoError(t, DecodeJSON(r, &p))
	assert.Equal(t, "cancelled", p.Status)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"state":"x"}`))
	assert.Error(t, DecodeJSON(r, &p), "unknown field")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"a"}{"status":"b"}`))
	assert.Error(t, DecodeJSON(r, &p), "trailing data")
}

package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

func TestFake_Charge(t *testing.T) {
	f := NewFake(100)
	f.DeclineUsers[13] = true
	ctx := context.Background()

	res, err := f.Charge(ctx, Charge{BookingID: 5, UserID: 1, Amount: 12.345})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "fake_5_1235", res.Reference)

	again, err := f.Charge(ctx, Charge{BookingID: 5, UserID: 1, Amount: 12.345})
	require.NoError(t, err)
	assert.Equal(t, res.Reference, again.Reference, "deterministic")

	res, err = f.Charge(ctx, Charge{BookingID: 6, UserID: 1, Amount: 100.01})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.DeclineReason)

	res, err = f.Charge(ctx, Charge{BookingID: 7, UserID: 13, Amount: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)

	_, err = f.Charge(ctx, Charge{BookingID: 8, UserID: 1, Amount: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Len(t, f.Charges(), 4)
}

func TestFake_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFake(0).Charge(ctx, Charge{BookingID: 1, Amount: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, domain.ErrDependency)
}

func TestFake_Refund(t *testing.T) {
	f := NewFake(0)
	require.NoError(t, f.Refund(context.Background(), "fake_1_100"))
	assert.True(t, f.Refunded("fake_1_100"))
	assert.False(t, f.Refunded("fake_2_100"))
}

func TestCharge_Cents(t *testing.T) {
	assert.Equal(t, int64(1999), Charge{Amount: 19.99}.Cents())
	assert.Equal(t, int64(0), Charge{}.Cents())
}

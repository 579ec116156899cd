package breaker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

func TestBreakerOpensAfterFailures(t *testing.T) {
	cb := New("test", Settings{}, nil, nil)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.True(t, IsOpen(err))
}

func TestBreakerIgnoresBusinessErrors(t *testing.T) {
	cb := New("test", Settings{}, func(err error) bool {
		return err == nil || errors.Is(err, errNotFound)
	}, nil)

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, errNotFound })
		require.ErrorIs(t, err, errNotFound)
	}

	v, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

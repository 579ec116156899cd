package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// Settings параметры автомата; нулевые значения заменяются значениями по умолчанию
type Settings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// StateLogger получает уведомления о смене состояния
type StateLogger interface {
	Warn(format string, v ...interface{})
}

// New создает circuit breaker для вызовов внешнего сервиса
// isSuccessful решает, какие ошибки не считаются отказом сервиса (например, 404)
func New(name string, s Settings, isSuccessful func(err error) bool, log StateLogger) *gobreaker.CircuitBreaker {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 3
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if log != nil {
				log.Warn("circuit breaker %s: %s -> %s", name, from, to)
			}
		},
		IsSuccessful: isSuccessful,
	})
}

// IsOpen сообщает, что вызов отклонён без обращения к сервису
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/m04kA/SMC-ChargingReservationService/pkg/breaker"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с UserService
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	retryCfg   retry.Config
	log        Logger
}

// NewClient создает новый экземпляр клиента UserService
func NewClient(baseURL string, timeout time.Duration, retryCfg retry.Config, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cb: breaker.New("userservice", breaker.Settings{}, func(err error) bool {
			// отсутствие автомобиля не отказ сервиса
			return err == nil || errors.Is(err, ErrVehicleNotFound)
		}, log),
		retryCfg: retryCfg,
		log:      log,
	}
}

// GetSelectedVehicle получает выбранный автомобиль пользователя
// Повторяет запрос только при недоступности сервиса
func (c *Client) GetSelectedVehicle(ctx context.Context, userID int64) (*Vehicle, error) {
	var vehicle *Vehicle

	err := retry.Do(ctx, c.retryCfg, isTransient, func(ctx context.Context) error {
		result, err := c.cb.Execute(func() (interface{}, error) {
			return c.fetchSelectedVehicle(ctx, userID)
		})
		if err != nil {
			if breaker.IsOpen(err) {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return err
		}
		vehicle = result.(*Vehicle)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return vehicle, nil
}

func (c *Client) fetchSelectedVehicle(ctx context.Context, userID int64) (*Vehicle, error) {
	url := fmt.Sprintf("%s/internal/users/%d/vehicles/selected", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch {
	case resp.StatusCode == http.StatusOK:
		// Продолжаем обработку
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: invalid user ID format", ErrInvalidResponse)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrVehicleNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status code %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	// Парсим ответ
	var vehicle Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicle); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &vehicle, nil
}

// GetSelectedVehicleWithGracefulDegradation получает выбранный автомобиль с graceful degradation
// При недоступности UserService возвращает ErrServiceDegraded, что позволяет создать бронирование без данных автомобиля
func (c *Client) GetSelectedVehicleWithGracefulDegradation(ctx context.Context, userID int64) (*Vehicle, error) {
	c.log.Info("Fetching selected vehicle for user_id=%d", userID)

	vehicle, err := c.GetSelectedVehicle(ctx, userID)
	if err != nil {
		// Если у пользователя просто нет автомобиля, пробрасываем ошибку дальше
		if errors.Is(err, ErrVehicleNotFound) {
			c.log.Info("No selected vehicle found for user_id=%d", userID)
			return nil, err
		}

		// Для всех остальных ошибок применяем graceful degradation
		c.log.Error("UserService unavailable, applying graceful degradation for user_id=%d: %v", userID, err)
		return nil, fmt.Errorf("%w: user_id=%d, error=%v", ErrServiceDegraded, userID, err)
	}

	c.log.Info("Successfully fetched vehicle for user_id=%d, connector=%s", userID, vehicle.ConnectorType)
	return vehicle, nil
}

func isTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

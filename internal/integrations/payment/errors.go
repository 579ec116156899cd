package payment

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	// ErrUnavailable провайдер недоступен (сеть, 5xx, 429, открытый circuit breaker); можно повторить
	ErrUnavailable = fmt.Errorf("%w: payment provider unavailable", domain.ErrDependency)

	// ErrRejected провайдер отклонил запрос не как отказ карты; повтор не поможет
	ErrRejected = fmt.Errorf("%w: payment provider rejected the request", domain.ErrDependency)

	// ErrInvalidCharge некорректная сумма или валюта
	ErrInvalidCharge = fmt.Errorf("%w: invalid charge", domain.ErrValidation)
)

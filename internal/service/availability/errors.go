package availability

import (
	"fmt"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
)

var (
	// ErrPortNotFound возвращается, когда порт не найден
	ErrPortNotFound = fmt.Errorf("%w: port", domain.ErrNotFound)

	// ErrStationNotFound возвращается, когда станция не найдена
	ErrStationNotFound = fmt.Errorf("%w: station", domain.ErrNotFound)

	// ErrInternal возвращается при сбоях хранилища или каталога
	ErrInternal = fmt.Errorf("%w: availability", domain.ErrDependency)
)

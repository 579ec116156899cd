package catalog

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/psqlbuilder"
)

type DBExecutor = dbmetrics.DBExecutor

var stationColumns = []string{
	"id",
	"name",
	"address",
	"latitude",
	"longitude",
	"price_per_kwh",
	"power_kw",
	"connector_types",
	"description",
	"owner_id",
}

var portColumns = []string{
	"id",
	"station_id",
	"label",
	"connector_type",
	"power_kw",
	"status",
}

// Repository каталог станций и портов
// Станции движок только читает; у портов он обновляет кешированный статус
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория каталога
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetStation получает станцию по ID
func (r *Repository) GetStation(ctx context.Context, id int64) (*domain.Station, error) {
	stations, err := r.queryStations(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("GetStation: %w", err)
	}
	if len(stations) == 0 {
		return nil, ErrStationNotFound
	}
	return stations[0], nil
}

// ListStations получает станции по списку ID (для обогащения списков бронирований)
func (r *Repository) ListStations(ctx context.Context, ids []int64) ([]*domain.Station, error) {
	if len(ids) == 0 {
		return []*domain.Station{}, nil
	}
	stations, err := r.queryStations(ctx, squirrel.Eq{"id": ids})
	if err != nil {
		return nil, fmt.Errorf("ListStations: %w", err)
	}
	return stations, nil
}

// GetPort получает порт по ID
func (r *Repository) GetPort(ctx context.Context, id int64) (*domain.Port, error) {
	ports, err := r.queryPorts(ctx, squirrel.Eq{"id": id})
	if err != nil {
		return nil, fmt.Errorf("GetPort: %w", err)
	}
	if len(ports) == 0 {
		return nil, ErrPortNotFound
	}
	return ports[0], nil
}

// ListPorts получает порты по списку ID
func (r *Repository) ListPorts(ctx context.Context, ids []int64) ([]*domain.Port, error) {
	if len(ids) == 0 {
		return []*domain.Port{}, nil
	}
	ports, err := r.queryPorts(ctx, squirrel.Eq{"id": ids})
	if err != nil {
		return nil, fmt.Errorf("ListPorts: %w", err)
	}
	return ports, nil
}

// ListPortsByStation получает все порты станции
func (r *Repository) ListPortsByStation(ctx context.Context, stationID int64) ([]*domain.Port, error) {
	ports, err := r.queryPorts(ctx, squirrel.Eq{"station_id": stationID})
	if err != nil {
		return nil, fmt.Errorf("ListPortsByStation: %w", err)
	}
	return ports, nil
}

// UpdatePortStatus сохраняет проекцию статуса порта
// Статус maintenance принадлежит оператору и не перезаписывается
func (r *Repository) UpdatePortStatus(ctx context.Context, portID int64, status domain.PortStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("ports").
		Set("status", status).
		Where(squirrel.Eq{"id": portID}).
		Where(squirrel.NotEq{"status": domain.PortMaintenance}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdatePortStatus - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: UpdatePortStatus - execute update: %w", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) queryStations(ctx context.Context, where squirrel.Sqlizer) ([]*domain.Station, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(stationColumns...).
		From("stations").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	stations := make([]*domain.Station, 0)
	for rows.Next() {
		var s domain.Station
		var connectorTypes pq.StringArray
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Address,
			&s.Latitude,
			&s.Longitude,
			&s.PricePerKWh,
			&s.PowerKW,
			&connectorTypes,
			&s.Description,
			&s.OwnerID,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanRow, err)
		}
		s.ConnectorTypes = []string(connectorTypes)
		stations = append(stations, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanRow, err)
	}

	return stations, nil
}

func (r *Repository) queryPorts(ctx context.Context, where squirrel.Sqlizer) ([]*domain.Port, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(portColumns...).
		From("ports").
		Where(where).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	ports := make([]*domain.Port, 0)
	for rows.Next() {
		var p domain.Port
		if err := rows.Scan(&p.ID, &p.StationID, &p.Label, &p.ConnectorType, &p.PowerKW, &p.Status); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanRow, err)
		}
		ports = append(ports, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanRow, err)
	}

	return ports, nil
}

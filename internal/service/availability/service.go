// Package availability projects port status and free windows from the set of
// active bookings. Bookings are the authority; the port status column is only
// a cache this package keeps in step after every transition. Station snapshots
// are keyed by a per-station generation that every transition bumps.
package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/availability/models"
	"github.com/m04kA/SMC-ChargingReservationService/internal/timewindow"
)

// Service проектор доступности портов
type Service struct {
	bookingRepo  BookingRepository
	catalogRepo  CatalogRepository
	txManager    TransactionManager
	cache        Cache
	location     *time.Location
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр проектора
// cache может быть nil: тогда снимки станций всегда считаются заново
func NewService(
	bookingRepo BookingRepository,
	catalogRepo CatalogRepository,
	txManager TransactionManager,
	cache Cache,
	location *time.Location,
	logger Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		bookingRepo:  bookingRepo,
		catalogRepo:  catalogRepo,
		txManager:    txManager,
		cache:        cache,
		location:     location,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// PortAvailability статус порта сейчас, занятые интервалы и свободные окна на дату
// Бронирования, переходящие через полночь, попадают в обе даты.
func (s *Service) PortAvailability(ctx context.Context, portID int64, date string) (*models.PortAvailability, error) {
	s.logger.Info("PortAvailability: port=%d, date=%s", portID, date)

	day, err := timewindow.ParseDate(date, s.location)
	if err != nil {
		s.logger.Warn("PortAvailability: invalid date %q", date)
		return nil, err
	}

	port, err := s.catalogRepo.GetPort(ctx, portID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrPortNotFound) {
			s.logger.Warn("PortAvailability: port id=%d not found", portID)
			return nil, ErrPortNotFound
		}
		s.logger.Error("PortAvailability: failed to get port id=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: PortAvailability - catalog error: %v", ErrInternal, err)
	}

	bounds := timewindow.Day(day, s.location)
	bookings, err := s.bookingRepo.ListActiveOverlapping(ctx, portID, bounds.Start, bounds.End)
	if err != nil {
		s.logger.Error("PortAvailability: failed to list bookings for port=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: PortAvailability - repository error: %v", ErrInternal, err)
	}

	now := s.timeProvider.Now()
	current, err := s.bookingRepo.ListActiveAt(ctx, []int64{portID}, now)
	if err != nil {
		s.logger.Error("PortAvailability: failed to get current booking for port=%d: %v", portID, err)
		return nil, fmt.Errorf("%w: PortAvailability - repository error: %v", ErrInternal, err)
	}

	busy := make([]models.BusyInterval, 0, len(bookings))
	intervals := make([]timewindow.Interval, 0, len(bookings))
	for _, b := range bookings {
		busy = append(busy, models.BusyInterval{
			BookingID: b.ID,
			Status:    b.Status,
			Start:     b.StartsAt.In(s.location),
			End:       b.EndsAt.In(s.location),
		})
		intervals = append(intervals, timewindow.Interval{Start: b.StartsAt, End: b.EndsAt})
	}

	gaps := timewindow.FreeWindows(bounds, intervals)
	free := make([]models.FreeInterval, 0, len(gaps))
	for _, g := range gaps {
		free = append(free, models.FreeInterval{Start: g.Start.In(s.location), End: g.End.In(s.location)})
	}

	return &models.PortAvailability{
		PortID:    port.ID,
		StationID: port.StationID,
		Date:      day.Format(domain.DateFormat),
		Status:    deriveStatus(port, current),
		Busy:      busy,
		Free:      free,
	}, nil
}

// StationAvailability статус каждого порта станции в текущий момент
// Все порты считаются одним запросом к бронированиям.
func (s *Service) StationAvailability(ctx context.Context, stationID int64) (*models.StationAvailability, error) {
	s.logger.Info("StationAvailability: station=%d", stationID)

	gen, cacheable := s.generation(ctx, stationID)
	if cacheable {
		if cached, ok := s.cachedStation(ctx, stationID, gen); ok {
			return cached, nil
		}
	}

	if _, err := s.catalogRepo.GetStation(ctx, stationID); err != nil {
		if errors.Is(err, catalogRepo.ErrStationNotFound) {
			s.logger.Warn("StationAvailability: station id=%d not found", stationID)
			return nil, ErrStationNotFound
		}
		s.logger.Error("StationAvailability: failed to get station id=%d: %v", stationID, err)
		return nil, fmt.Errorf("%w: StationAvailability - catalog error: %v", ErrInternal, err)
	}

	ports, err := s.catalogRepo.ListPortsByStation(ctx, stationID)
	if err != nil {
		s.logger.Error("StationAvailability: failed to list ports for station=%d: %v", stationID, err)
		return nil, fmt.Errorf("%w: StationAvailability - catalog error: %v", ErrInternal, err)
	}

	portIDs := make([]int64, 0, len(ports))
	for _, p := range ports {
		portIDs = append(portIDs, p.ID)
	}

	now := s.timeProvider.Now()
	current, err := s.bookingRepo.ListActiveAt(ctx, portIDs, now)
	if err != nil {
		s.logger.Error("StationAvailability: failed to list current bookings for station=%d: %v", stationID, err)
		return nil, fmt.Errorf("%w: StationAvailability - repository error: %v", ErrInternal, err)
	}

	byPort := make(map[int64][]*domain.Booking, len(current))
	for _, b := range current {
		byPort[b.PortID] = append(byPort[b.PortID], b)
	}

	result := &models.StationAvailability{
		StationID: stationID,
		At:        now,
		Ports:     make([]models.PortState, 0, len(ports)),
	}
	for _, p := range ports {
		state := models.PortState{
			PortID:        p.ID,
			Label:         p.Label,
			ConnectorType: p.ConnectorType,
			PowerKW:       p.PowerKW,
			Status:        deriveStatus(p, byPort[p.ID]),
		}
		if active := byPort[p.ID]; len(active) > 0 {
			id, until := active[0].ID, active[0].EndsAt
			state.ActiveBookingID = &id
			state.BusyUntil = &until
		}
		if state.Status == domain.PortAvailable {
			result.Available++
		}
		result.Ports = append(result.Ports, state)
	}

	if cacheable {
		s.storeStation(ctx, gen, result)
	}
	return result, nil
}

// RefreshPort пересчитывает кешированный статус порта и сбрасывает снимок станции
// Пересчёт идёт под блокировкой порта, поэтому последним пишет тот, кто видел
// последний зафиксированный переход. Ошибки только логируются: бронирование
// уже зафиксировано и не откатывается.
func (s *Service) RefreshPort(ctx context.Context, stationID, portID int64) {
	defer s.invalidateStation(ctx, stationID)

	var from, to domain.PortStatus
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.bookingRepo.LockPort(txCtx, portID); err != nil {
			return fmt.Errorf("lock port: %w", err)
		}

		port, err := s.catalogRepo.GetPort(txCtx, portID)
		if err != nil {
			return fmt.Errorf("get port: %w", err)
		}
		from, to = port.Status, port.Status
		if port.InMaintenance() {
			return nil
		}

		current, err := s.bookingRepo.ListActiveAt(txCtx, []int64{portID}, s.timeProvider.Now())
		if err != nil {
			return fmt.Errorf("list current bookings: %w", err)
		}

		to = deriveStatus(port, current)
		if to == from {
			return nil
		}
		return s.catalogRepo.UpdatePortStatus(txCtx, portID, to)
	})
	if err != nil {
		s.logger.Error("RefreshPort: failed to refresh status of port=%d: %v", portID, err)
		return
	}
	if from != to {
		s.logger.Info("RefreshPort: port=%d status %s -> %s", portID, from, to)
	}
}

// deriveStatus maintenance задаёт оператор, иначе порт занят, если активное бронирование содержит now
func deriveStatus(port *domain.Port, activeNow []*domain.Booking) domain.PortStatus {
	if port.InMaintenance() {
		return domain.PortMaintenance
	}
	if len(activeNow) > 0 {
		return domain.PortInUse
	}
	return domain.PortAvailable
}

func generationKey(stationID int64) string {
	return fmt.Sprintf("availability:station:%d:gen", stationID)
}

func snapshotKey(stationID, gen int64) string {
	return fmt.Sprintf("availability:station:%d:v%d", stationID, gen)
}

// generation текущее поколение снимков станции; false - кешем пользоваться нельзя
// Поколение читается до расчёта: снимок, посчитанный до перехода, ляжет под старый ключ.
func (s *Service) generation(ctx context.Context, stationID int64) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	raw, ok, err := s.cache.Get(ctx, generationKey(stationID))
	if err != nil {
		s.logger.Warn("StationAvailability: cache get failed for station=%d: %v", stationID, err)
		return 0, false
	}
	if !ok {
		return 0, true
	}

	gen, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		s.logger.Warn("StationAvailability: corrupted generation for station=%d: %v", stationID, err)
		return 0, false
	}
	return gen, true
}

func (s *Service) cachedStation(ctx context.Context, stationID, gen int64) (*models.StationAvailability, bool) {
	raw, ok, err := s.cache.Get(ctx, snapshotKey(stationID, gen))
	if err != nil {
		s.logger.Warn("StationAvailability: cache get failed for station=%d: %v", stationID, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var cached models.StationAvailability
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn("StationAvailability: corrupted cache entry for station=%d: %v", stationID, err)
		return nil, false
	}
	return &cached, true
}

func (s *Service) storeStation(ctx context.Context, gen int64, value *models.StationAvailability) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("StationAvailability: failed to marshal snapshot for station=%d: %v", value.StationID, err)
		return
	}
	if err := s.cache.Set(ctx, snapshotKey(value.StationID, gen), raw); err != nil {
		s.logger.Warn("StationAvailability: cache set failed for station=%d: %v", value.StationID, err)
	}
}

// invalidateStation переключает станцию на новое поколение; старые снимки истекут по TTL
func (s *Service) invalidateStation(ctx context.Context, stationID int64) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey(stationID)); err != nil {
		s.logger.Warn("RefreshPort: cache invalidation failed for station=%d: %v", stationID, err)
	}
}

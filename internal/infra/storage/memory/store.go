// Package memory is an in-process storage adapter. It owns the booking arena
// (entities keyed by generated ids plus a per-port index) and the catalog, and
// serializes work per port. Callers only ever receive copies.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
)

// ErrNoScope LockPort вызван вне DoSerializable
var ErrNoScope = errors.New("memory: port lock requires a serializable scope")

// Store arena of stations, ports and bookings
type Store struct {
	// mu guards the maps only; it is never held while waiting for a port lock
	mu            sync.RWMutex
	nextBookingID int64
	bookings      map[int64]*domain.Booking
	byPort        map[int64][]int64
	stations      map[int64]*domain.Station
	ports         map[int64]*domain.Port

	locksMu   sync.Mutex
	portLocks map[int64]chan struct{}

	now func() time.Time
}

// Option настраивает Store
type Option func(*Store)

// WithClock подменяет источник времени для created_at/updated_at
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore создает пустое хранилище
func NewStore(opts ...Option) *Store {
	s := &Store{
		bookings:  make(map[int64]*domain.Booking),
		byPort:    make(map[int64][]int64),
		stations:  make(map[int64]*domain.Station),
		ports:     make(map[int64]*domain.Port),
		portLocks: make(map[int64]chan struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================
// Serializable scope
// ============================================================

type scopeKey struct{}

type scope struct {
	held   []chan struct{}
	locked map[int64]bool
	undo   []func()
}

// DoSerializable выполняет fn как единое целое
// Блокировки портов, взятые через LockPort, освобождаются по завершении fn.
// Если fn вернула ошибку, все записи, сделанные внутри, откатываются.
func (s *Store) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return fn(ctx)
	}

	sc := &scope{locked: make(map[int64]bool)}
	defer func() {
		for i := len(sc.held) - 1; i >= 0; i-- {
			<-sc.held[i]
		}
	}()

	if err := fn(context.WithValue(ctx, scopeKey{}, sc)); err != nil {
		s.mu.Lock()
		for i := len(sc.undo) - 1; i >= 0; i-- {
			sc.undo[i]()
		}
		s.mu.Unlock()
		return err
	}

	return nil
}

// Do то же, что DoSerializable: чтения в памяти всегда видят последние записи
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.DoSerializable(ctx, fn)
}

// LockPort захватывает эксклюзивную блокировку порта до конца текущего scope
func (s *Store) LockPort(ctx context.Context, portID int64) error {
	sc, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok {
		return ErrNoScope
	}
	if sc.locked[portID] {
		return nil
	}

	s.mu.RLock()
	_, exists := s.ports[portID]
	s.mu.RUnlock()
	if !exists {
		return bookingRepo.ErrPortNotFound
	}

	lock := s.portLock(portID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	sc.held = append(sc.held, lock)
	sc.locked[portID] = true
	return nil
}

func (s *Store) portLock(portID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.portLocks[portID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.portLocks[portID] = lock
	}
	return lock
}

func recordUndo(ctx context.Context, fn func()) {
	if sc, ok := ctx.Value(scopeKey{}).(*scope); ok {
		sc.undo = append(sc.undo, fn)
	}
}

// ============================================================
// Bookings
// ============================================================

// Create сохраняет бронирование и присваивает ему ID
// Повторно проверяет пересечение с активными бронированиями порта
func (s *Store) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ports[booking.PortID]; !ok {
		return nil, bookingRepo.ErrPortNotFound
	}

	if booking.Status.IsActive() {
		for _, id := range s.byPort[booking.PortID] {
			existing := s.bookings[id]
			if existing.IsActive() && existing.Overlaps(booking.StartsAt, booking.EndsAt) {
				return nil, bookingRepo.ErrOverlap
			}
		}
	}

	s.nextBookingID++
	stored := booking.Clone()
	stored.ID = s.nextBookingID
	now := s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.bookings[stored.ID] = stored
	s.insertIndex(stored)

	id, portID := stored.ID, stored.PortID
	recordUndo(ctx, func() {
		delete(s.bookings, id)
		s.removeIndex(portID, id)
	})

	return stored.Clone(), nil
}

// GetByID получает бронирование по ID
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	return b.Clone(), nil
}

// ListActiveOverlapping активные бронирования порта, пересекающие [start, end), по возрастанию начала
func (s *Store) ListActiveOverlapping(ctx context.Context, portID int64, start, end time.Time) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, id := range s.byPort[portID] {
		b := s.bookings[id]
		if b.IsActive() && b.Overlaps(start, end) {
			result = append(result, b.Clone())
		}
	}
	return result, nil
}

// ListActiveAt активные бронирования портов, содержащие момент at
func (s *Store) ListActiveAt(ctx context.Context, portIDs []int64, at time.Time) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, portID := range portIDs {
		for _, id := range s.byPort[portID] {
			b := s.bookings[id]
			if b.IsActive() && b.Contains(at) {
				result = append(result, b.Clone())
			}
		}
	}
	return result, nil
}

// CountActiveByUser считает активные бронирования пользователя
func (s *Store) CountActiveByUser(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.bookings {
		if b.UserID == userID && b.IsActive() {
			count++
		}
	}
	return count, nil
}

// List бронирования по фильтру, новые первыми
func (s *Store) List(ctx context.Context, filter domain.BookingsFilter) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, b := range s.bookings {
		if matches(b, filter) {
			result = append(result, b.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartsAt.Equal(result[j].StartsAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].StartsAt.After(result[j].StartsAt)
	})
	return result, nil
}

// UpdateStatus применяет шаг машины состояний, если текущий статус равен change.From
func (s *Store) UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[change.BookingID]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	if b.Status != change.From {
		return nil, fmt.Errorf("%w: expected %s, actual %s", bookingRepo.ErrStatusChanged, change.From, b.Status)
	}

	previous := b.Clone()

	at := change.At
	b.Status = change.To
	b.UpdatedAt = at
	switch change.To {
	case domain.StatusConfirmed:
		b.ConfirmedAt = &at
		b.Amount = change.Amount
		b.PaymentRef = change.PaymentRef
	case domain.StatusCompleted:
		b.CompletedAt = &at
	case domain.StatusCancelled:
		b.CancelledAt = &at
		b.CancellationReason = change.Reason
		b.CancelledBy = change.ActorID
	}

	recordUndo(ctx, func() {
		s.bookings[previous.ID] = previous
	})

	return b.Clone(), nil
}

func matches(b *domain.Booking, f domain.BookingsFilter) bool {
	if f.UserID != nil && b.UserID != *f.UserID {
		return false
	}
	if f.StationID != nil && b.StationID != *f.StationID {
		return false
	}
	if f.PortID != nil && b.PortID != *f.PortID {
		return false
	}
	if f.StartDate != nil && dateOnly(b.BookingDate).Before(dateOnly(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && dateOnly(b.BookingDate).After(dateOnly(*f.EndDate)) {
		return false
	}
	if f.Status != nil {
		return b.Status == *f.Status
	}
	if !f.IncludeInactive && !b.IsActive() {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// insertIndex держит индекс порта упорядоченным по началу интервала
func (s *Store) insertIndex(b *domain.Booking) {
	ids := s.byPort[b.PortID]
	pos := sort.Search(len(ids), func(i int) bool {
		return s.bookings[ids[i]].StartsAt.After(b.StartsAt)
	})
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = b.ID
	s.byPort[b.PortID] = ids
}

func (s *Store) removeIndex(portID, bookingID int64) {
	ids := s.byPort[portID]
	for i, id := range ids {
		if id == bookingID {
			s.byPort[portID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// ============================================================
// Catalog
// ============================================================

// AddStation добавляет станцию (используется при загрузке каталога)
func (s *Store) AddStation(station domain.Station) *domain.Station {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := station
	stored.ConnectorTypes = append([]string(nil), station.ConnectorTypes...)
	s.stations[stored.ID] = &stored
	return cloneStation(&stored)
}

// AddPort добавляет порт существующей станции
func (s *Store) AddPort(port domain.Port) (*domain.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stations[port.StationID]; !ok {
		return nil, catalogRepo.ErrStationNotFound
	}
	if port.Status == "" {
		port.Status = domain.PortAvailable
	}
	stored := port
	s.ports[stored.ID] = &stored
	c := stored
	return &c, nil
}

// GetStation получает станцию по ID
func (s *Store) GetStation(ctx context.Context, id int64) (*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stations[id]
	if !ok {
		return nil, catalogRepo.ErrStationNotFound
	}
	return cloneStation(st), nil
}

// ListStations станции по списку ID; отсутствующие пропускаются
func (s *Store) ListStations(ctx context.Context, ids []int64) ([]*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Station, 0, len(ids))
	for _, id := range ids {
		if st, ok := s.stations[id]; ok {
			result = append(result, cloneStation(st))
		}
	}
	return result, nil
}

// GetPort получает порт по ID
func (s *Store) GetPort(ctx context.Context, id int64) (*domain.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.ports[id]
	if !ok {
		return nil, catalogRepo.ErrPortNotFound
	}
	c := *p
	return &c, nil
}

// ListPorts порты по списку ID; отсутствующие пропускаются
func (s *Store) ListPorts(ctx context.Context, ids []int64) ([]*domain.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Port, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.ports[id]; ok {
			c := *p
			result = append(result, &c)
		}
	}
	return result, nil
}

// ListPortsByStation порты станции по возрастанию ID
func (s *Store) ListPortsByStation(ctx context.Context, stationID int64) ([]*domain.Port, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Port, 0)
	for _, p := range s.ports {
		if p.StationID == stationID {
			c := *p
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdatePortStatus обновляет кешированный статус порта, не трогая maintenance
func (s *Store) UpdatePortStatus(ctx context.Context, portID int64, status domain.PortStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.ports[portID]
	if !ok {
		return catalogRepo.ErrPortNotFound
	}
	if p.InMaintenance() {
		return nil
	}
	p.Status = status
	return nil
}

func cloneStation(st *domain.Station) *domain.Station {
	c := *st
	c.ConnectorTypes = append([]string(nil), st.ConnectorTypes...)
	if st.OwnerID != nil {
		v := *st.OwnerID
		c.OwnerID = &v
	}
	if st.Description != nil {
		v := *st.Description
		c.Description = &v
	}
	return &c
}

package confirm_booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ChargingReservationService/internal/authz"
	"github.com/m04kA/SMC-ChargingReservationService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/booking"
	catalogRepo "github.com/m04kA/SMC-ChargingReservationService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ChargingReservationService/internal/integrations/payment"
	"github.com/m04kA/SMC-ChargingReservationService/internal/service/bookings/models"
)

// UseCase подтверждение бронирования через оплату
type UseCase struct {
	bookingRepo    BookingRepository
	catalogRepo    CatalogRepository
	provider       PaymentProvider
	bookingService BookingService
	currency       string
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	catalogRepo CatalogRepository,
	provider PaymentProvider,
	bookingService BookingService,
	currency string,
	logger Logger,
) *UseCase {
	if currency == "" {
		currency = "usd"
	}
	return &UseCase{
		bookingRepo:    bookingRepo,
		catalogRepo:    catalogRepo,
		provider:       provider,
		bookingService: bookingService,
		currency:       currency,
		logger:         logger,
	}
}

// Execute считает сумму, списывает её и подтверждает бронирование
// Если после успешного списания подтверждение не удалось, платёж возвращается.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*models.BookingResponse, error) {
	uc.logger.Info("ConfirmBooking: booking id=%d by user=%d", req.BookingID, req.Actor.UserID)

	// 1. Бронирование, станция и порт
	booking, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("ConfirmBooking: failed to get booking id=%d: %v", req.BookingID, err)
		return nil, fmt.Errorf("%w: get booking: %v", ErrInternal, err)
	}

	station, err := uc.catalogRepo.GetStation(ctx, booking.StationID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStationNotFound) {
			return nil, ErrStationNotFound
		}
		uc.logger.Error("ConfirmBooking: failed to get station id=%d: %v", booking.StationID, err)
		return nil, fmt.Errorf("%w: get station: %v", ErrInternal, err)
	}

	port, err := uc.catalogRepo.GetPort(ctx, booking.PortID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrPortNotFound) {
			return nil, ErrPortNotFound
		}
		uc.logger.Error("ConfirmBooking: failed to get port id=%d: %v", booking.PortID, err)
		return nil, fmt.Errorf("%w: get port: %v", ErrInternal, err)
	}

	// 2. До списания: права и статус. Под блокировкой порта всё перепроверит сервис
	if err := authz.Authorize(req.Actor, authz.ActionConfirmBooking, authz.Subject{Booking: booking, Station: station}); err != nil {
		uc.logger.Warn("ConfirmBooking: user=%d cannot confirm booking id=%d", req.Actor.UserID, booking.ID)
		return nil, ErrAccessDenied
	}
	if booking.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, booking.Status)
	}

	// 3. Сумма считается на сервере
	amount := Amount(station, port, booking)

	result, err := uc.charge(ctx, booking, station, port, amount)
	if err != nil {
		return nil, err
	}

	// 4. Переход pending -> confirmed (отказ оплаты оставит pending)
	confirmed, err := uc.bookingService.Confirm(ctx, booking.ID, req.Actor, models.PaymentResult{
		Success:       result.Success,
		Amount:        amount,
		Reference:     result.Reference,
		DeclineReason: result.DeclineReason,
	})
	if err != nil {
		if result.Success {
			uc.refund(ctx, booking.ID, result.Reference)
		}
		return nil, err
	}

	uc.logger.Info("ConfirmBooking: booking id=%d confirmed, amount=%.2f %s", booking.ID, amount, uc.currency)
	return confirmed, nil
}

// charge списывает сумму; бесплатная зарядка подтверждается без обращения к провайдеру
// Каждый вызов Execute это новая попытка оплаты со своим AttemptID.
func (uc *UseCase) charge(ctx context.Context, booking *domain.Booking, station *domain.Station, port *domain.Port, amount float64) (*payment.Result, error) {
	if amount == 0 {
		uc.logger.Info("ConfirmBooking: booking id=%d is free of charge, provider not called", booking.ID)
		return &payment.Result{Success: true}, nil
	}

	result, err := uc.provider.Charge(ctx, payment.Charge{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Amount:    amount,
		Currency:  uc.currency,
		Description: fmt.Sprintf("%s, port %s, %s %s-%s", station.Name, port.Label,
			booking.BookingDate.Format(domain.DateFormat), booking.StartTime, booking.EndTime),
		AttemptID: uuid.NewString(),
	})
	if err != nil {
		uc.logger.Error("ConfirmBooking: charge failed for booking id=%d: %v", booking.ID, err)
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	return result, nil
}

func (uc *UseCase) refund(ctx context.Context, bookingID int64, reference string) {
	if reference == "" {
		return
	}
	// возврат не должен зависеть от отмены исходного запроса
	if err := uc.provider.Refund(context.WithoutCancel(ctx), reference); err != nil {
		uc.logger.Error("ConfirmBooking: refund %s for booking id=%d failed: %v", reference, bookingID, err)
		return
	}
	uc.logger.Warn("ConfirmBooking: booking id=%d was not confirmed, payment %s refunded", bookingID, reference)
}

// Amount стоимость бронирования: цена за кВт·ч × мощность × часы, с округлением до копеек
// Мощность берётся у порта, а если она не задана, у станции.
func Amount(station *domain.Station, port *domain.Port, booking *domain.Booking) float64 {
	power := port.PowerKW
	if power <= 0 {
		power = station.PowerKW
	}
	hours := booking.EndsAt.Sub(booking.StartsAt).Hours()
	return math.Round(station.PricePerKWh*power*hours*100) / 100
}

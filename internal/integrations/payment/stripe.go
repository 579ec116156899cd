package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"

	"github.com/m04kA/SMC-ChargingReservationService/pkg/breaker"
	"github.com/m04kA/SMC-ChargingReservationService/pkg/retry"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// StripeConfig параметры адаптера Stripe
type StripeConfig struct {
	APIKey        string
	Currency      string
	PaymentMethod string // платёжный метод клиента, например pm_card_visa в тестовом режиме
	BackendURL    string // пусто - api.stripe.com; задаётся для stripe-mock
}

// Stripe провайдер поверх PaymentIntents API
type Stripe struct {
	intents  paymentintent.Client
	refunds  refund.Client
	cfg      StripeConfig
	cb       *gobreaker.CircuitBreaker
	retryCfg retry.Config
	log      Logger
}

// NewStripe создает адаптер Stripe
func NewStripe(cfg StripeConfig, retryCfg retry.Config, log Logger) *Stripe {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}

	return &Stripe{
		intents:  paymentintent.Client{B: backend, Key: cfg.APIKey},
		refunds:  refund.Client{B: backend, Key: cfg.APIKey},
		cfg:      cfg,
		cb:       breaker.New("stripe", breaker.Settings{}, isProviderHealthy, log),
		retryCfg: retryCfg,
		log:      log,
	}
}

// Charge создает и сразу подтверждает PaymentIntent
// Ключ идемпотентности привязан к попытке оплаты: сетевые повторы не спишут дважды,
// а новая попытка после отказа карты уходит в Stripe как новый запрос.
func (s *Stripe) Charge(ctx context.Context, charge Charge) (*Result, error) {
	if charge.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount %.2f", ErrInvalidCharge, charge.Amount)
	}

	currency := charge.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	key := IdempotencyKey(charge)

	s.log.Info("Stripe: creating payment intent for booking=%d amount=%.2f %s", charge.BookingID, charge.Amount, currency)

	var pi *stripe.PaymentIntent
	err := retry.Do(ctx, s.retryCfg, isRetryable, func(ctx context.Context) error {
		params := &stripe.PaymentIntentParams{
			Amount:             stripe.Int64(charge.Cents()),
			Currency:           stripe.String(currency),
			Confirm:            stripe.Bool(true),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		}
		if s.cfg.PaymentMethod != "" {
			params.PaymentMethod = stripe.String(s.cfg.PaymentMethod)
		}
		if charge.Description != "" {
			params.Description = stripe.String(charge.Description)
		}
		params.AddMetadata("booking_id", strconv.FormatInt(charge.BookingID, 10))
		params.AddMetadata("user_id", strconv.FormatInt(charge.UserID, 10))
		params.SetIdempotencyKey(key)
		params.Context = ctx

		result, err := s.cb.Execute(func() (interface{}, error) {
			return s.intents.New(params)
		})
		if err != nil {
			return err
		}
		pi = result.(*stripe.PaymentIntent)
		return nil
	})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			s.log.Warn("Stripe: card declined for booking=%d: %s", charge.BookingID, stripeErr.Msg)
			return &Result{Success: false, DeclineReason: stripeErr.Msg}, nil
		}
		s.log.Error("Stripe: failed to charge booking=%d: %v", charge.BookingID, err)
		return nil, classify(err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		s.log.Warn("Stripe: payment intent %s for booking=%d ended in status %s", pi.ID, charge.BookingID, pi.Status)
		return &Result{Success: false, Reference: pi.ID, DeclineReason: fmt.Sprintf("payment status %s", pi.Status)}, nil
	}

	s.log.Info("Stripe: payment intent %s succeeded for booking=%d", pi.ID, charge.BookingID)
	return &Result{Success: true, Reference: pi.ID}, nil
}

// IdempotencyKey ключ списания для одной попытки оплаты бронирования
// Без AttemptID каждый вызов считается новой попыткой.
func IdempotencyKey(charge Charge) string {
	attempt := charge.AttemptID
	if attempt == "" {
		attempt = uuid.NewString()
	}
	return fmt.Sprintf("booking-%d-confirm-%s", charge.BookingID, attempt)
}

// Refund возвращает средства по PaymentIntent
func (s *Stripe) Refund(ctx context.Context, reference string) error {
	if reference == "" {
		return fmt.Errorf("%w: empty payment reference", ErrInvalidCharge)
	}

	params := &stripe.RefundParams{PaymentIntent: stripe.String(reference)}
	params.SetIdempotencyKey("refund-" + reference)
	params.Context = ctx

	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.refunds.New(params)
	})
	if err != nil {
		s.log.Error("Stripe: failed to refund %s: %v", reference, err)
		return classify(err)
	}

	s.log.Info("Stripe: refunded %s", reference)
	return nil
}

// isProviderHealthy отказ карты и ошибки запроса не говорят о недоступности Stripe
func isProviderHealthy(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode > 0 &&
			stripeErr.HTTPStatusCode < http.StatusInternalServerError &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}

func isRetryable(err error) bool {
	if breaker.IsOpen(err) {
		return false
	}
	return !isProviderHealthy(err)
}

func classify(err error) error {
	if breaker.IsOpen(err) || isRetryable(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRejected, err)
}

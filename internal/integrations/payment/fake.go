package payment

import (
	"context"
	"fmt"
	"sync"
)

// Fake детерминированный провайдер для тестов и локального запуска
// Отклоняет суммы больше DeclineAbove (если задано) и платежи пользователей из DeclineUsers.
type Fake struct {
	DeclineAbove float64
	DeclineUsers map[int64]bool

	mu       sync.Mutex
	charges  []Charge
	refunded map[string]bool
}

// NewFake создает фейковый провайдер
func NewFake(declineAbove float64) *Fake {
	return &Fake{
		DeclineAbove: declineAbove,
		DeclineUsers: make(map[int64]bool),
		refunded:     make(map[string]bool),
	}
}

// Charge выполняет списание
func (f *Fake) Charge(ctx context.Context, charge Charge) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if charge.Amount < 0 {
		return nil, fmt.Errorf("%w: amount %.2f", ErrInvalidCharge, charge.Amount)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, charge)

	if f.DeclineUsers[charge.UserID] {
		return &Result{Success: false, DeclineReason: "card declined"}, nil
	}
	if f.DeclineAbove > 0 && charge.Amount > f.DeclineAbove {
		return &Result{Success: false, DeclineReason: fmt.Sprintf("amount exceeds limit %.2f", f.DeclineAbove)}, nil
	}

	return &Result{
		Success:   true,
		Reference: fmt.Sprintf("fake_%d_%d", charge.BookingID, charge.Cents()),
	}, nil
}

// Refund возвращает средства по ссылке на платёж
func (f *Fake) Refund(ctx context.Context, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refunded == nil {
		f.refunded = make(map[string]bool)
	}
	f.refunded[reference] = true
	return nil
}

// Charges все принятые списания (включая отклонённые)
func (f *Fake) Charges() []Charge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Charge(nil), f.charges...)
}

// Refunded сообщает, был ли возврат по ссылке
func (f *Fake) Refunded(reference string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunded[reference]
}

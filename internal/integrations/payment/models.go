package payment

import "math"

// Charge списание за бронирование
type Charge struct {
	BookingID   int64
	UserID      int64
	Amount      float64 // в основной единице валюты
	Currency    string
	Description string
	AttemptID   string // одна попытка оплаты; сетевые повторы внутри неё идут с тем же ключом
}

// Cents сумма в минимальных единицах валюты
func (c Charge) Cents() int64 {
	return int64(math.Round(c.Amount * 100))
}

// Result ответ провайдера: успех или отказ
// Ошибка транспорта возвращается отдельно как error и не является отказом
type Result struct {
	Success       bool
	Reference     string
	DeclineReason string
}

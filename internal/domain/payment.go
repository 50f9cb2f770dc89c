package domain

import "time"

// OrderSnapshot — слепок черновика заказа, известный на момент отправки
// платежа. Используется для восстановления заказа, если событие шлюза
// приходит раньше, чем checkout успел создать запись.
type OrderSnapshot struct {
	Items         []OrderItem
	Subtotal      float64
	DeliveryFee   float64
	Total         float64
	Currency      string
	PaymentMethod PaymentMethod
	Address       Address
	Contact       Contact
}

// Candidate превращает слепок в кандидата для движка сверки.
func (s *OrderSnapshot) Candidate() Candidate {
	if s == nil {
		return Candidate{}
	}
	cand := Candidate{
		Items:       s.Items,
		Subtotal:    &s.Subtotal,
		DeliveryFee: &s.DeliveryFee,
		Total:       &s.Total,
	}
	if s.Currency != "" {
		cand.Currency = &s.Currency
	}
	if s.PaymentMethod != "" {
		cand.PaymentMethod = &s.PaymentMethod
	}
	if s.Address != (Address{}) {
		addr := s.Address
		cand.Address = &addr
	}
	if s.Contact != (Contact{}) {
		contact := s.Contact
		cand.Contact = &contact
	}
	return cand
}

// PaymentRecord — запись о транзакции внешнего шлюза. Ключ — TransactionID,
// поэтому повторная доставка одного события естественно идемпотентна.
// Жизненный цикл независим от заказа: запись создаётся слепком при отправке
// checkout и обновляется каждым входящим событием по этой транзакции.
type PaymentRecord struct {
	TransactionID  string
	OrderReference string
	Provider       string
	// Status — статус в терминах шлюза, без интерпретации.
	Status   string
	Amount   float64
	Currency string
	// Metadata хранит сырые данные провайдера для аудита.
	Metadata  map[string]string
	Snapshot  *OrderSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность полей записи платежа.
func (p *PaymentRecord) Validate() []error {
	var errs []error

	if p.TransactionID == "" {
		errs = append(errs, ErrEventMalformed)
	}
	if p.Amount < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}

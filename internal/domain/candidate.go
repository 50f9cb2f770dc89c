package domain

import "time"

// Candidate — набор полей заказа, предлагаемых одним из независимых
// писателей (checkout, карточный шлюз, mobile money). Поля-указатели со
// значением nil означают "поле не передано": при слиянии отсутствующее
// поле никогда не затирает сохранённое.
type Candidate struct {
	Status               *OrderStatus
	PaymentStatus        *PaymentStatus
	PaymentMethod        *PaymentMethod
	GatewayTransactionID *string
	PaidAt               *time.Time
	Items                []OrderItem
	Subtotal             *float64
	DeliveryFee          *float64
	Total                *float64
	Currency             *string
	Address              *Address
	Contact              *Contact
}

// Overlay накладывает поля other поверх текущего кандидата: переданные в
// other поля имеют приоритет. Используется адаптерами, когда кандидат из
// события шлюза дополняется слепком черновика заказа.
func (c Candidate) Overlay(other Candidate) Candidate {
	if other.Status != nil {
		c.Status = other.Status
	}
	if other.PaymentStatus != nil {
		c.PaymentStatus = other.PaymentStatus
	}
	if other.PaymentMethod != nil {
		c.PaymentMethod = other.PaymentMethod
	}
	if other.GatewayTransactionID != nil {
		c.GatewayTransactionID = other.GatewayTransactionID
	}
	if other.PaidAt != nil {
		c.PaidAt = other.PaidAt
	}
	if other.Items != nil {
		c.Items = other.Items
	}
	if other.Subtotal != nil {
		c.Subtotal = other.Subtotal
	}
	if other.DeliveryFee != nil {
		c.DeliveryFee = other.DeliveryFee
	}
	if other.Total != nil {
		c.Total = other.Total
	}
	if other.Currency != nil {
		c.Currency = other.Currency
	}
	if other.Address != nil {
		c.Address = other.Address
	}
	if other.Contact != nil {
		c.Contact = other.Contact
	}
	return c
}

package domain

import (
	"math"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не начата (cash on delivery).
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessingPayment — ожидаем подтверждение от платёжного шлюза.
	OrderStatusProcessingPayment OrderStatus = "processing_payment"
	// OrderStatusPaid — оплата подтверждена. Терминальный статус.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusPaymentFailed — шлюз отклонил оплату; возможен повторный цикл оплаты.
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	// OrderStatusCancelled — заказ отменён. Терминальный статус; записи не удаляются.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// PaymentMethod — способ оплаты, выбранный при оформлении заказа.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
)

// AmountTolerance — допустимое расхождение при сравнении денежных сумм.
const AmountTolerance = 0.01

// AmountsEqual сравнивает две суммы с учётом допуска AmountTolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	Name      string
	Qty       int32
	// UnitPrice — цена за единицу, подтверждённая каталогом.
	UnitPrice float64
	// Variant хранит описатели варианта товара (размер, добавки и т.п.).
	Variant map[string]string
}

// Address — адрес доставки, переданный при оформлении.
type Address struct {
	Street   string
	City     string
	Landmark string
}

// Contact — контактные данные получателя.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Order агрегирует состояние заказа. Reference служит одновременно
// идемпотентным ключом и первичным ключом записи.
type Order struct {
	Reference            string
	Items                []OrderItem
	Subtotal             float64
	DeliveryFee          float64
	Total                float64
	Currency             string
	PaymentMethod        PaymentMethod
	PaymentStatus        PaymentStatus
	Status               OrderStatus
	GatewayTransactionID string
	Address              Address
	Contact              Contact
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	PaidAt               *time.Time
}

// Terminal сообщает, запрещены ли дальнейшие смены статуса.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessingPayment, OrderStatusPaid,
		OrderStatusPaymentFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid проверяет, что способ оплаты поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobileMoney:
		return true
	default:
		return false
	}
}

// CanTransition кодирует машину состояний заказа:
// pending → processing_payment → {paid | payment_failed};
// payment_failed → processing_payment (повторная попытка оплаты);
// paid и cancelled — терминальные. Прямой переход payment_failed → paid
// запрещён: успех должен прийти со свежим подтверждением шлюза.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusProcessingPayment || to == OrderStatusPaid ||
			to == OrderStatusPaymentFailed || to == OrderStatusCancelled
	case OrderStatusProcessingPayment:
		return to == OrderStatusPaid || to == OrderStatusPaymentFailed ||
			to == OrderStatusCancelled
	case OrderStatusPaymentFailed:
		return to == OrderStatusProcessingPayment || to == OrderStatusCancelled
	default:
		return false
	}
}

// ValidateAmounts проверяет денежные инварианты заказа. Выделена отдельно
// от ValidateInvariants, потому что заказ, созданный из события шлюза до
// прихода checkout-данных, позиций ещё не имеет.
func (o *Order) ValidateAmounts() []error {
	var errs []error

	if o.Subtotal < 0 || o.DeliveryFee < 0 || o.Total < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if !AmountsEqual(o.Total, o.Subtotal+o.DeliveryFee) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// ValidateInvariants проверяет полный набор инвариантов заказа,
// оформленного через checkout.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Reference == "" {
		errs = append(errs, ErrReferenceRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем subtotal с суммой позиций: qty * unit price.
	var calc float64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPrice < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += float64(item.Qty) * item.UnitPrice
	}
	if len(o.Items) > 0 && !AmountsEqual(calc, o.Subtotal) {
		errs = append(errs, ErrAmountMismatch)
	}

	errs = append(errs, o.ValidateAmounts()...)

	if o.Status == OrderStatusPaid || o.PaymentStatus == PaymentStatusPaid {
		if o.PaidAt == nil {
			errs = append(errs, ErrPaidAtMissing)
		}
		if o.Status != OrderStatusPaid || o.PaymentStatus != PaymentStatusPaid {
			errs = append(errs, ErrPaidInconsistent)
		}
	}

	return errs
}

package reconcile

import (
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// mergeOutcome описывает результат слияния кандидата в заказ.
type mergeOutcome struct {
	// statusChanged — статус заказа изменился и требует публикации события.
	statusChanged bool
	// terminalSkipped — смена статуса отброшена терминальным правилом.
	terminalSkipped bool
}

// mergeOrder накладывает кандидата на сохранённый заказ (union merge):
// отсутствующее поле кандидата оставляет сохранённое без изменений,
// присутствующее — перезаписывает. Единственное исключение — монотонное
// правило: терминальный статус не понижается, и тогда поля жизненного
// цикла оплаты (status, paymentStatus, paidAt, gatewayTransactionId)
// остаются нетронутыми, а остальные поля всё равно сливаются.
func mergeOrder(stored domain.Order, cand domain.Candidate, now time.Time) (domain.Order, mergeOutcome) {
	merged := stored
	var outcome mergeOutcome

	applyLifecycle := true
	if stored.Status.Terminal() {
		if cand.Status == nil || *cand.Status != stored.Status {
			applyLifecycle = false
			if cand.Status != nil || cand.PaymentStatus != nil || cand.PaidAt != nil {
				outcome.terminalSkipped = true
			}
		}
	} else if cand.Status != nil && *cand.Status != stored.Status {
		if !domain.CanTransition(stored.Status, *cand.Status) {
			// Запрещённый переход принимается в одном случае: paid со
			// свежим подтверждением шлюза (повторный цикл оплаты после
			// payment_failed).
			if !(*cand.Status == domain.OrderStatusPaid && cand.GatewayTransactionID != nil) {
				applyLifecycle = false
			}
		}
	}

	if applyLifecycle {
		if cand.Status != nil && *cand.Status != merged.Status {
			merged.Status = *cand.Status
			outcome.statusChanged = true
		}
		if cand.PaymentStatus != nil {
			merged.PaymentStatus = *cand.PaymentStatus
		}
		// paidAt выставляется ровно один раз: повторное подтверждение
		// не сдвигает исходное время оплаты.
		if cand.PaidAt != nil && merged.PaidAt == nil {
			paidAt := *cand.PaidAt
			merged.PaidAt = &paidAt
		}
		if cand.GatewayTransactionID != nil {
			merged.GatewayTransactionID = *cand.GatewayTransactionID
		}
		// Оплаченный заказ обязан иметь отметку времени оплаты, даже если
		// кандидат её не нёс.
		if merged.Status == domain.OrderStatusPaid && merged.PaidAt == nil {
			paidAt := now
			merged.PaidAt = &paidAt
		}
	}

	if cand.PaymentMethod != nil {
		merged.PaymentMethod = *cand.PaymentMethod
	}
	if cand.Items != nil {
		merged.Items = cand.Items
	}
	if cand.Subtotal != nil {
		merged.Subtotal = *cand.Subtotal
	}
	if cand.DeliveryFee != nil {
		merged.DeliveryFee = *cand.DeliveryFee
	}
	if cand.Total != nil {
		merged.Total = *cand.Total
	}
	if cand.Currency != nil {
		merged.Currency = *cand.Currency
	}
	if cand.Address != nil {
		merged.Address = *cand.Address
	}
	if cand.Contact != nil {
		merged.Contact = *cand.Contact
	}

	merged.UpdatedAt = now

	return merged, outcome
}

// newOrderFromCandidate строит заказ для первой вставки, подставляя
// разумные значения по умолчанию для отсутствующих полей.
func newOrderFromCandidate(reference string, cand domain.Candidate, now time.Time) domain.Order {
	order := domain.Order{
		Reference:     reference,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if cand.Status != nil {
		order.Status = *cand.Status
	}
	if cand.PaymentStatus != nil {
		order.PaymentStatus = *cand.PaymentStatus
	}
	if cand.PaymentMethod != nil {
		order.PaymentMethod = *cand.PaymentMethod
	}
	if cand.GatewayTransactionID != nil {
		order.GatewayTransactionID = *cand.GatewayTransactionID
	}
	if cand.PaidAt != nil {
		paidAt := *cand.PaidAt
		order.PaidAt = &paidAt
	}
	if cand.Items != nil {
		order.Items = cand.Items
	}
	if cand.Subtotal != nil {
		order.Subtotal = *cand.Subtotal
	}
	if cand.DeliveryFee != nil {
		order.DeliveryFee = *cand.DeliveryFee
	}
	if cand.Total != nil {
		order.Total = *cand.Total
	}
	if cand.Currency != nil {
		order.Currency = *cand.Currency
	}
	if cand.Address != nil {
		order.Address = *cand.Address
	}
	if cand.Contact != nil {
		order.Contact = *cand.Contact
	}

	if order.Status == domain.OrderStatusPaid && order.PaidAt == nil {
		paidAt := now
		order.PaidAt = &paidAt
	}

	return order
}

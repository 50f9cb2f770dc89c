package kafka

import (
	"time"

	"github.com/google/uuid"
)

// EventType определяет тип события заказа.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderProcessing    EventType = "order.processing_payment"
	EventTypeOrderPaid          EventType = "order.paid"
	EventTypeOrderPaymentFailed EventType = "order.payment_failed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
)

// TopicOrderEvents — топик событий жизненного цикла заказов.
const TopicOrderEvents = "checkout.order.events"

// OrderEvent представляет событие заказа.
type OrderEvent struct {
	EventID       string            `json:"event_id"`
	EventType     EventType         `json:"event_type"`
	Reference     string            `json:"reference"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewOrderEvent создает событие заказа с уникальным идентификатором.
func NewOrderEvent(eventType EventType, reference, status, method string) OrderEvent {
	return OrderEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Reference:     reference,
		Status:        status,
		PaymentMethod: method,
		Timestamp:     time.Now().UTC(),
	}
}

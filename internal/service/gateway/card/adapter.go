package card

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
)

// Поддерживаемые типы событий карточного процессора. Неизвестные типы
// записываются в PaymentRecord для аудита, но не меняют заказ.
const (
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventPaymentProcessing     = "payment.processing"
	EventPaymentRequiresAction = "payment.requires_action"
)

// metadataReferenceKey — ключ, под которым процессор возвращает reference
// заказа в метаданных события.
const metadataReferenceKey = "order_reference"

// Adapter интерпретирует подписанные события карточного процессора.
// Каждое событие идемпотентно по transaction id: повторная доставка
// приводит к тому же состоянию PaymentRecord и заказа.
type Adapter struct {
	secret   []byte
	payments domain.PaymentRecordStore
	orders   domain.OrderStore
	engine   *reconcile.Engine
	logger   *log.Entry
}

// NewAdapter создаёт адаптер карточного шлюза. secret — общий секрет
// подписи вебхуков, выданный процессором.
func NewAdapter(secret string, payments domain.PaymentRecordStore, orders domain.OrderStore,
	engine *reconcile.Engine, logger *log.Entry) *Adapter {
	if logger == nil {
		logger = log.New().WithField("component", "card_gateway")
	}
	return &Adapter{
		secret:   []byte(secret),
		payments: payments,
		orders:   orders,
		engine:   engine,
		logger:   logger,
	}
}

// event — тело вебхука карточного процессора.
type event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data eventData `json:"data"`
}

type eventData struct {
	TransactionID string            `json:"transaction_id"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// VerifySignature сверяет подпись сырого тела события: hex-кодированный
// HMAC-SHA256 с общим секретом. Сравнение выполняется за константное время.
func (a *Adapter) VerifySignature(body []byte, signature string) error {
	if signature == "" {
		return domain.ErrSignatureInvalid
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return domain.ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

// HandleEvent проверяет подпись, разбирает событие, обновляет PaymentRecord
// и передаёт кандидата движку сверки. Ошибка хранилища возвращается наверх,
// чтобы HTTP-слой ответил не-2xx и процессор передоставил событие позже.
func (a *Adapter) HandleEvent(body []byte, signature string) error {
	if err := a.VerifySignature(body, signature); err != nil {
		a.logger.Warn("webhook rejected: invalid signature")
		return err
	}

	var ev event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEventMalformed, err)
	}
	if ev.Type == "" || ev.Data.TransactionID == "" {
		return fmt.Errorf("%w: missing event type or transaction id", domain.ErrEventMalformed)
	}

	logger := a.logger.WithFields(log.Fields{
		"event_id":       ev.ID,
		"event_type":     ev.Type,
		"transaction_id": ev.Data.TransactionID,
	})

	stored, err := a.payments.Get(ev.Data.TransactionID)
	if err != nil && !errors.Is(err, domain.ErrPaymentNotFound) {
		return err
	}

	reference := a.resolveReference(ev, stored)

	record := domain.PaymentRecord{
		TransactionID:  ev.Data.TransactionID,
		OrderReference: reference,
		Provider:       "card",
		Status:         ev.Type,
		Amount:         ev.Data.Amount,
		Currency:       ev.Data.Currency,
		Metadata:       ev.Data.Metadata,
	}
	if err := a.payments.Upsert(record); err != nil {
		return err
	}

	cand, recognized := candidateForEvent(ev)
	if !recognized {
		logger.Info("unrecognized event type recorded for audit, order untouched")
		return nil
	}

	// Если заказа ещё нет, восстанавливаем его из слепка черновика,
	// сохранённого при отправке checkout.
	if a.orderMissing(reference) {
		cand = stored.Snapshot.Candidate().Overlay(cand)
	}

	order, err := a.engine.Reconcile(reference, cand)
	if err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"reference": reference,
		"status":    order.Status,
	}).Info("card event reconciled")
	return nil
}

// resolveReference определяет целевой заказ: метаданные события, затем
// ранее сохранённое сопоставление на PaymentRecord, затем сам transaction id.
func (a *Adapter) resolveReference(ev event, stored domain.PaymentRecord) string {
	if ref := ev.Data.Metadata[metadataReferenceKey]; ref != "" {
		return ref
	}
	if stored.OrderReference != "" {
		return stored.OrderReference
	}
	return ev.Data.TransactionID
}

func (a *Adapter) orderMissing(reference string) bool {
	if a.orders == nil {
		return false
	}
	_, err := a.orders.Get(reference)
	return errors.Is(err, domain.ErrOrderNotFound)
}

// candidateForEvent сопоставляет тип события с кандидатом перехода заказа.
func candidateForEvent(ev event) (domain.Candidate, bool) {
	var status domain.OrderStatus
	var payStatus domain.PaymentStatus
	switch ev.Type {
	case EventPaymentSucceeded:
		status, payStatus = domain.OrderStatusPaid, domain.PaymentStatusPaid
	case EventPaymentFailed:
		status, payStatus = domain.OrderStatusPaymentFailed, domain.PaymentStatusFailed
	case EventPaymentProcessing, EventPaymentRequiresAction:
		status, payStatus = domain.OrderStatusProcessingPayment, domain.PaymentStatusProcessing
	default:
		return domain.Candidate{}, false
	}

	method := domain.PaymentMethodCard
	txnID := ev.Data.TransactionID
	// paidAt намеренно не выставляется: движок сверки проставляет его
	// один раз при первом переходе в paid, и повторная доставка события
	// не сдвигает исходное время оплаты.
	return domain.Candidate{
		Status:               &status,
		PaymentStatus:        &payStatus,
		PaymentMethod:        &method,
		GatewayTransactionID: &txnID,
	}, true
}

// SignEvent вычисляет подпись тела события. Используется тестами и
// инструментами эмуляции процессора.
func SignEvent(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

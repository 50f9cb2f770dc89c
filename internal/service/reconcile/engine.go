package reconcile

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// maxMergeAttempts ограничивает цикл read-merge-save при конфликтах версий.
// Конфликт не ошибка, а проигранная гонка: повторное чтение и слияние
// сходятся, потому что merge никогда не понижает терминальный статус.
const maxMergeAttempts = 5

// Engine — движок сверки заказов. Единственная точка входа для всех
// независимых писателей: checkout, карточного шлюза и mobile money.
// Безопасен для конкурентных вызовов по одному reference.
type Engine struct {
	orders        domain.OrderStore
	logger        *log.Entry
	metrics       *metrics.ReconcileMetrics
	kafkaProducer *kafka.Producer // опциональный producer для событий заказов
}

// Option настраивает Engine.
type Option func(*Engine)

// WithKafka подключает публикацию событий жизненного цикла заказов.
func WithKafka(producer *kafka.Producer) Option {
	return func(e *Engine) {
		e.kafkaProducer = producer
	}
}

// WithMetrics подключает метрики движка.
func WithMetrics(m *metrics.ReconcileMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine создаёт движок сверки поверх хранилища заказов.
func NewEngine(orders domain.OrderStore, logger *log.Entry, opts ...Option) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "reconcile")
	}
	e := &Engine{
		orders: orders,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile вставляет или сливает кандидата в заказ под reference.
// Операция идемпотентна: повторный вызов с теми же полями не создаёт
// дубликатов и не меняет итогового состояния.
func (e *Engine) Reconcile(reference string, cand domain.Candidate) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordDuration(time.Since(start))
		}
	}()

	if reference == "" {
		return domain.Order{}, domain.ErrReferenceRequired
	}

	order, err := e.reconcile(reference, cand)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordFailed()
		}
		return domain.Order{}, err
	}
	return order, nil
}

func (e *Engine) reconcile(reference string, cand domain.Candidate) (domain.Order, error) {
	logger := e.logger.WithField("reference", reference)

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		stored, err := e.orders.Get(reference)
		if err != nil {
			if !errors.Is(err, domain.ErrOrderNotFound) {
				return domain.Order{}, err
			}
			order, created, insertErr := e.insert(reference, cand, logger)
			if insertErr != nil {
				return domain.Order{}, insertErr
			}
			if created {
				return order, nil
			}
			// Проиграна гонка вставки: другой писатель успел первым,
			// заходим на слияние заново.
			continue
		}

		now := time.Now().UTC()
		merged, outcome := mergeOrder(stored, cand, now)

		if errs := validateOrder(merged); len(errs) != 0 {
			logger.WithField("errors", errs).Error("merge produced inconsistent order, rejecting candidate")
			return domain.Order{}, errs[0]
		}

		if err := e.orders.Save(merged); err != nil {
			if domain.IsVersionConflict(err) {
				if e.metrics != nil {
					e.metrics.RecordVersionConflict()
				}
				logger.WithField("attempt", attempt).Debug("version conflict, re-reading order")
				continue
			}
			return domain.Order{}, err
		}
		merged.Version++

		if e.metrics != nil {
			if outcome.terminalSkipped {
				e.metrics.RecordTerminalSkipped()
			} else {
				e.metrics.RecordMerged()
			}
		}
		if outcome.terminalSkipped {
			logger.WithFields(log.Fields{
				"status": stored.Status,
			}).Info("candidate status change ignored: order status is terminal")
		}
		if outcome.statusChanged {
			e.publishStatusEvent(merged)
		}

		return merged, nil
	}

	return domain.Order{}, fmt.Errorf("reconcile %s: too many merge attempts: %w",
		reference, domain.ErrOrderVersionConflict)
}

// validateOrder проверяет заказ перед записью. Полный набор инвариантов
// применим только к заказу с позициями: заказ, созданный из события шлюза
// до прихода checkout-данных, позиций ещё не несёт, и для него проверяются
// только денежные инварианты.
func validateOrder(order domain.Order) []error {
	if len(order.Items) > 0 {
		return order.ValidateInvariants()
	}
	return order.ValidateAmounts()
}

// insert пытается создать заказ первым писателем. created=false означает
// проигранную гонку вставки.
func (e *Engine) insert(reference string, cand domain.Candidate, logger *log.Entry) (domain.Order, bool, error) {
	order := newOrderFromCandidate(reference, cand, time.Now().UTC())

	if errs := validateOrder(order); len(errs) != 0 {
		logger.WithField("errors", errs).Error("candidate is inconsistent, rejecting insert")
		return domain.Order{}, false, errs[0]
	}

	if err := e.orders.Create(order); err != nil {
		if domain.IsVersionConflict(err) {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}

	if e.metrics != nil {
		e.metrics.RecordCreated()
	}
	logger.WithFields(log.Fields{
		"status":         order.Status,
		"payment_method": order.PaymentMethod,
	}).Info("order created")

	e.publishEvent(kafka.EventTypeOrderCreated, order)
	if order.Status != domain.OrderStatusPending {
		e.publishStatusEvent(order)
	}

	return order, true, nil
}

func (e *Engine) publishStatusEvent(order domain.Order) {
	var eventType kafka.EventType
	switch order.Status {
	case domain.OrderStatusProcessingPayment:
		eventType = kafka.EventTypeOrderProcessing
	case domain.OrderStatusPaid:
		eventType = kafka.EventTypeOrderPaid
	case domain.OrderStatusPaymentFailed:
		eventType = kafka.EventTypeOrderPaymentFailed
	case domain.OrderStatusCancelled:
		eventType = kafka.EventTypeOrderCancelled
	default:
		return
	}
	e.publishEvent(eventType, order)
}

// publishEvent публикует событие best-effort: сбой Kafka не должен
// откатывать уже сохранённый заказ.
func (e *Engine) publishEvent(eventType kafka.EventType, order domain.Order) {
	if e.kafkaProducer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.Reference, string(order.Status), string(order.PaymentMethod))
	if err := e.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, order.Reference, event); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"reference":  order.Reference,
			"event_type": eventType,
		}).Warn("failed to publish order event")
	}
}

package momo

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
)

const (
	phoneDigits = 8
	codeDigits  = 6
)

// ChargeRequest — параметры синхронного платежа mobile money.
// Amount и пр. берутся из уже проверенных валидатором цен данных,
// а не из сырого запроса клиента.
type ChargeRequest struct {
	Provider       string
	PhoneNumber    string
	PaymentCode    string
	OrderReference string
	Amount         float64
	Subtotal       float64
	DeliveryFee    float64
	Currency       string
	Items          []domain.OrderItem
	Address        domain.Address
	Contact        domain.Contact
}

// ChargeResult — результат успешно проведённого платежа.
type ChargeResult struct {
	TransactionID string
	Amount        float64
}

// Adapter проводит одноразовый синхронный платёж: верификация у провайдера,
// запись платежа и сверка заказа — всё в рамках входящего запроса.
type Adapter struct {
	verifier domain.VerificationService
	payments domain.PaymentRecordStore
	engine   *reconcile.Engine
	logger   *log.Entry
}

// NewAdapter создаёт адаптер mobile money.
func NewAdapter(verifier domain.VerificationService, payments domain.PaymentRecordStore,
	engine *reconcile.Engine, logger *log.Entry) *Adapter {
	if logger == nil {
		logger = log.New().WithField("component", "momo_gateway")
	}
	return &Adapter{
		verifier: verifier,
		payments: payments,
		engine:   engine,
		logger:   logger,
	}
}

// Charge проверяет входные данные, вызывает верификацию провайдера и при
// успехе записывает платёж и сверяет заказ. Отклонение или таймаут не
// оставляют никаких следов в хранилище: остаточная запись, похожая на
// оплату, недопустима.
func (a *Adapter) Charge(req ChargeRequest) (ChargeResult, error) {
	if req.OrderReference == "" {
		return ChargeResult{}, domain.ErrReferenceRequired
	}
	if req.Provider == "" {
		return ChargeResult{}, domain.ErrProviderRequired
	}

	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return ChargeResult{}, err
	}
	if !digitsOnly(req.PaymentCode) || len(req.PaymentCode) != codeDigits {
		return ChargeResult{}, domain.ErrPaymentCodeInvalid
	}

	logger := a.logger.WithFields(log.Fields{
		"reference": req.OrderReference,
		"provider":  req.Provider,
	})

	result, err := a.verifier.Verify(domain.VerificationRequest{
		Provider:       req.Provider,
		PhoneNumber:    phone,
		PaymentCode:    req.PaymentCode,
		OrderReference: req.OrderReference,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		if domain.IsDecline(err) {
			logger.WithField("reason", domain.DeclineReason(err)).Info("payment declined by provider")
		} else {
			logger.WithError(err).Warn("payment verification failed")
		}
		return ChargeResult{}, err
	}

	now := time.Now().UTC()
	record := domain.PaymentRecord{
		TransactionID:  result.TransactionID,
		OrderReference: req.OrderReference,
		Provider:       req.Provider,
		Status:         "paid",
		Amount:         result.Amount,
		Currency:       req.Currency,
	}
	if err := a.payments.Upsert(record); err != nil {
		return ChargeResult{}, fmt.Errorf("save payment record: %w", err)
	}

	status := domain.OrderStatusPaid
	payStatus := domain.PaymentStatusPaid
	method := domain.PaymentMethodMobileMoney
	cand := domain.Candidate{
		Status:               &status,
		PaymentStatus:        &payStatus,
		PaymentMethod:        &method,
		GatewayTransactionID: &result.TransactionID,
		PaidAt:               &now,
		Subtotal:             &req.Subtotal,
		DeliveryFee:          &req.DeliveryFee,
		Total:                &req.Amount,
		Items:                req.Items,
	}
	if req.Currency != "" {
		cand.Currency = &req.Currency
	}
	if req.Address != (domain.Address{}) {
		addr := req.Address
		cand.Address = &addr
	}
	if req.Contact != (domain.Contact{}) {
		contact := req.Contact
		cand.Contact = &contact
	}

	if _, err := a.engine.Reconcile(req.OrderReference, cand); err != nil {
		return ChargeResult{}, err
	}

	logger.WithField("transaction_id", result.TransactionID).Info("mobile money payment reconciled")
	return ChargeResult{TransactionID: result.TransactionID, Amount: result.Amount}, nil
}

// NormalizePhone убирает разделители (пробелы, дефисы, точки, скобки) и
// требует ровно восемь цифр. Принимаются только ASCII-цифры: unicode-цифры
// занимают больше байта и ломали бы подсчёт длины.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
			// разделители отбрасываем
		default:
			return "", domain.ErrPhoneInvalid
		}
	}
	phone := b.String()
	if len(phone) != phoneDigits {
		return "", domain.ErrPhoneInvalid
	}
	return phone, nil
}

// digitsOnly принимает только ASCII-цифры '0'–'9'.
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

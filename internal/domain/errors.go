package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего reference заказа.
	ErrReferenceRequired = errors.New("order reference is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы.
	ErrAmountNegative = errors.New("amounts must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// ErrTotalMismatch — total не сходится с subtotal + delivery fee.
	ErrTotalMismatch = errors.New("total does not match subtotal plus delivery fee")
	// ErrAmountMismatch — заявленные клиентом суммы расходятся с пересчётом
	// по каталогу. Трактуется как подозрение на подмену цены.
	ErrAmountMismatch = errors.New("claimed amounts do not match recomputed amounts")
	// ErrDeliveryFeeInvalid — плата за доставку не равна ни нулю (при
	// достижении порога бесплатной доставки), ни фиксированному тарифу.
	ErrDeliveryFeeInvalid = errors.New("delivery fee does not match configured fee")
	// ErrProductUnknown — каталог не смог подтвердить цену позиции.
	ErrProductUnknown = errors.New("product is not resolvable in catalog")
	// ErrPaidAtMissing — статус paid без отметки времени оплаты.
	ErrPaidAtMissing = errors.New("paid order must have paid_at set")
	// ErrPaidInconsistent — paid выставлен только в одном из двух статусов.
	ErrPaidInconsistent = errors.New("order status and payment status disagree on paid")

	// ErrSignatureInvalid — подпись события шлюза отсутствует или не сходится.
	ErrSignatureInvalid = errors.New("event signature is missing or invalid")
	// ErrEventMalformed — тело события не разбирается или не содержит transaction id.
	ErrEventMalformed = errors.New("event payload is malformed")

	// ErrPhoneInvalid — номер телефона не состоит ровно из 8 цифр.
	ErrPhoneInvalid = errors.New("phone number must be exactly 8 digits")
	// ErrPaymentCodeInvalid — платёжный код не состоит ровно из 6 цифр.
	ErrPaymentCodeInvalid = errors.New("payment code must be exactly 6 digits")
	// ErrProviderRequired — не указан mobile-money провайдер.
	ErrProviderRequired = errors.New("payment provider is required")
	// ErrPaymentMethodInvalid — способ оплаты вне поддерживаемого набора.
	ErrPaymentMethodInvalid = errors.New("payment method is not supported")

	// Причины отклонения синхронной верификации платежа.
	ErrWrongCode           = errors.New("wrong payment code")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserCancelled       = errors.New("payment cancelled by user")
	// ErrGatewayDeclined — отклонение без распознанной причины.
	ErrGatewayDeclined = errors.New("payment declined by gateway")

	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении
	// или о проигранной гонке вставки по тому же reference.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrPaymentNotFound возвращается, если запись платежа не найдена.
	ErrPaymentNotFound = errors.New("payment record not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsDecline проверяет, относится ли ошибка к отклонению платежа провайдером.
func IsDecline(err error) bool {
	return errors.Is(err, ErrWrongCode) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUserCancelled) ||
		errors.Is(err, ErrGatewayDeclined)
}

// DeclineError несёт человекочитаемую причину отклонения от провайдера.
type DeclineError struct {
	Reason string
	Err    error
}

func (e *DeclineError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Reason)
}

func (e *DeclineError) Unwrap() error { return e.Err }

// NewDecline оборачивает причину провайдера в DeclineError поверх
// соответствующей sentinel-ошибки.
func NewDecline(sentinel error, reason string) error {
	return &DeclineError{Reason: reason, Err: sentinel}
}

// DeclineReason возвращает причину отклонения для ответа клиенту.
func DeclineReason(err error) string {
	var de *DeclineError
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	switch {
	case errors.Is(err, ErrWrongCode):
		return "wrong payment code"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient balance"
	case errors.Is(err, ErrUserCancelled):
		return "payment cancelled by user"
	case errors.Is(err, ErrGatewayDeclined):
		return "payment declined"
	default:
		return ""
	}
}

// StorageErrorCode классифицирует ошибки хранилища. Набор кодов фиксирован:
// все перечисленные классы считаются временными и подлежат повтору.
type StorageErrorCode string

const (
	StorageUnavailable       StorageErrorCode = "unavailable"
	StorageDeadlineExceeded  StorageErrorCode = "deadline_exceeded"
	StorageResourceExhausted StorageErrorCode = "resource_exhausted"
	StorageAborted           StorageErrorCode = "aborted"
	StorageInternal          StorageErrorCode = "internal"
	StorageCancelled         StorageErrorCode = "cancelled"
)

// Transient сообщает, имеет ли смысл повторять операцию при этом коде.
func (c StorageErrorCode) Transient() bool {
	switch c {
	case StorageUnavailable, StorageDeadlineExceeded, StorageResourceExhausted,
		StorageAborted, StorageInternal, StorageCancelled:
		return true
	default:
		return false
	}
}

// StorageError — ошибка уровня хранилища с классом для retry-логики.
type StorageError struct {
	Code StorageErrorCode
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("storage %s (%s): %v", e.Op, e.Code, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError оборачивает низкоуровневую ошибку хранилища.
func NewStorageError(code StorageErrorCode, op string, err error) error {
	return &StorageError{Code: code, Op: op, Err: err}
}

// IsTransientStorage проверяет, относится ли ошибка к временным сбоям
// хранилища, при которых операцию можно повторить.
func IsTransientStorage(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code.Transient()
	}
	return false
}

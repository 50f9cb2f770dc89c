package verify

import (
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Коды, которые заглушка всегда отклоняет. Любой другой шестизначный код
// считается успешным.
const (
	MockCodeWrongCode           = "111111"
	MockCodeInsufficientBalance = "222222"
	MockCodeUserCancelled       = "333333"
)

// MockService — конфигурируемая заглушка VerificationService для разработки
// и тестов. Исход определяется платёжным кодом.
type MockService struct {
	// VerifyErr принудительно возвращается вместо табличного поведения.
	VerifyErr error
	// TransactionID переопределяет генерируемый идентификатор.
	TransactionID string

	Calls int
}

// NewMockService возвращает mock с табличным поведением по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// Verify реализует табличные исходы и считает вызовы.
func (m *MockService) Verify(req domain.VerificationRequest) (domain.VerificationResult, error) {
	m.Calls++

	if m.VerifyErr != nil {
		return domain.VerificationResult{}, m.VerifyErr
	}

	switch req.PaymentCode {
	case MockCodeWrongCode:
		return domain.VerificationResult{}, domain.ErrWrongCode
	case MockCodeInsufficientBalance:
		return domain.VerificationResult{}, domain.ErrInsufficientBalance
	case MockCodeUserCancelled:
		return domain.VerificationResult{}, domain.ErrUserCancelled
	}

	transactionID := m.TransactionID
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	return domain.VerificationResult{
		TransactionID: transactionID,
		Amount:        req.Amount,
	}, nil
}

var _ domain.VerificationService = (*MockService)(nil)

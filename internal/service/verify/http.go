package verify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const defaultVerifyTimeout = 10 * time.Second

// HTTPService выполняет синхронную верификацию платежа у внешнего
// провайдера. Вызов ограничен таймаутом клиента: зависший провайдер
// превращается в ошибку, а не в висящий запрос.
type HTTPService struct {
	url    string
	client *http.Client
	logger *log.Entry
}

// NewHTTPService создаёт клиента верификации с ограниченным таймаутом.
func NewHTTPService(url string, timeout time.Duration, logger *log.Entry) *HTTPService {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	if logger == nil {
		logger = log.New().WithField("component", "verify-client")
	}
	return &HTTPService{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type verifyRequestBody struct {
	Provider       string  `json:"provider"`
	PhoneNumber    string  `json:"phone_number"`
	PaymentCode    string  `json:"payment_code"`
	OrderReference string  `json:"order_reference"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

type verifyResponseBody struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
	ReasonCode    string  `json:"reason_code"`
}

// Verify выполняет одноразовый верификационный вызов и транслирует
// известные причины отклонения в типизированные ошибки.
func (s *HTTPService) Verify(req domain.VerificationRequest) (domain.VerificationResult, error) {
	body, err := json.Marshal(verifyRequestBody{
		Provider:       req.Provider,
		PhoneNumber:    req.PhoneNumber,
		PaymentCode:    req.PaymentCode,
		OrderReference: req.OrderReference,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("marshal verify request: %w", err)
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		// Таймаут или сетевой сбой: наружу уходит повторяемая ошибка,
		// клиент может безопасно повторить с тем же reference.
		return domain.VerificationResult{}, fmt.Errorf("verification call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("read verification response: %w", err)
	}

	var parsed verifyResponseBody
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("decode verification response: %w", err)
	}

	if !parsed.Success {
		s.logger.WithFields(log.Fields{
			"provider":    req.Provider,
			"reason_code": parsed.ReasonCode,
		}).Info("verification declined by provider")
		return domain.VerificationResult{}, mapDecline(parsed.ReasonCode, parsed.Reason)
	}

	if parsed.TransactionID == "" {
		return domain.VerificationResult{}, fmt.Errorf("provider returned success without transaction id")
	}

	amount := parsed.Amount
	if amount == 0 {
		amount = req.Amount
	}

	return domain.VerificationResult{
		TransactionID: parsed.TransactionID,
		Amount:        amount,
	}, nil
}

// mapDecline переводит код причины провайдера в типизированную ошибку.
func mapDecline(code, reason string) error {
	switch code {
	case "wrong_code":
		return domain.ErrWrongCode
	case "insufficient_balance":
		return domain.ErrInsufficientBalance
	case "user_cancelled":
		return domain.ErrUserCancelled
	default:
		return domain.NewDecline(domain.ErrGatewayDeclined, reason)
	}
}

var _ domain.VerificationService = (*HTTPService)(nil)

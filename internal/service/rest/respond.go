package rest

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// errorResponse — единая форма ошибки API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// validationSentinels — ошибки входных данных, безопасные для показа клиенту.
var validationSentinels = []error{
	domain.ErrReferenceRequired,
	domain.ErrItemsRequired,
	domain.ErrCurrencyRequired,
	domain.ErrItemQtyInvalid,
	domain.ErrPhoneInvalid,
	domain.ErrPaymentCodeInvalid,
	domain.ErrProviderRequired,
	domain.ErrPaymentMethodInvalid,
}

// respondError отображает ошибку сервиса в HTTP-ответ. Детали расхождения
// сумм клиенту не возвращаются: наружу уходит общий текст, подробности
// остаются в логах валидатора.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case isAmountError(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "verification failed, please retry"})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSignatureInvalid), errors.Is(err, domain.ErrEventMalformed):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	case domain.IsDecline(err):
		c.JSON(http.StatusPaymentRequired, errorResponse{
			Error: domain.DeclineReason(err),
			Code:  "PAYMENT_FAILED",
		})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "order not found"})
	case isRetryable(err):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable, please retry"})
	default:
		s.logger.WithError(err).Error("unhandled service error")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func isAmountError(err error) bool {
	return errors.Is(err, domain.ErrAmountMismatch) ||
		errors.Is(err, domain.ErrDeliveryFeeInvalid) ||
		errors.Is(err, domain.ErrTotalMismatch) ||
		errors.Is(err, domain.ErrAmountNegative)
}

func isValidationError(err error) bool {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// isRetryable — ошибки, при которых повтор того же запроса безопасен и
// имеет смысл: исчерпанные transient-ошибки хранилища, конфликт версий,
// не уложившийся в лимит попыток, таймаут внешней верификации.
func isRetryable(err error) bool {
	if domain.IsTransientStorage(err) || domain.IsVersionConflict(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

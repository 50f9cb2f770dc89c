package rest

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/momo"
	"github.com/vladislavdragonenkov/checkout/internal/service/pricing"
)

// handleCardWebhook принимает подписанное событие карточного процессора.
// Любой не-2xx ответ заставляет процессор передоставить событие позже,
// поэтому сбои хранилища возвращаются как 503, а не глотаются.
func (s *Server) handleCardWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	signature := c.GetHeader(webhookSignatureHeader)
	if err := s.card.HandleEvent(body, signature); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// mobileMoneyRequest — синхронный платёж mobile money. Несёт и черновик
// заказа: оплата и оформление происходят одним запросом.
type mobileMoneyRequest struct {
	Provider       string         `json:"provider"`
	PhoneNumber    string         `json:"phoneNumber"`
	PaymentCode    string         `json:"paymentCode"`
	OrderReference string         `json:"orderReference" binding:"required"`
	Items          []itemPayload  `json:"items"`
	Subtotal       float64        `json:"subtotal"`
	DeliveryFee    float64        `json:"deliveryFee"`
	Total          float64        `json:"total"`
	Currency       string         `json:"currency"`
	Address        addressPayload `json:"address"`
	Contact        contactPayload `json:"contact"`
}

// mobileMoneyResponse — успешный результат синхронного платежа.
type mobileMoneyResponse struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
}

// handleMobileMoney проводит платёж в рамках запроса: суммы сперва
// пересчитываются по каталогу, к провайдеру уходят только доверенные
// значения. Ответ возвращается после завершения сверки заказа.
func (s *Server) handleMobileMoney(c *gin.Context) {
	var req mobileMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Quantity,
			UnitPrice: item.UnitPrice,
			Variant:   item.Variant,
		}
	}

	priced, err := s.pricing.Validate(pricing.CheckoutDraft{
		Reference:   req.OrderReference,
		Items:       items,
		Subtotal:    req.Subtotal,
		DeliveryFee: req.DeliveryFee,
		Total:       req.Total,
		Currency:    req.Currency,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.momo.Charge(momo.ChargeRequest{
		Provider:       req.Provider,
		PhoneNumber:    req.PhoneNumber,
		PaymentCode:    req.PaymentCode,
		OrderReference: req.OrderReference,
		Amount:         priced.Total,
		Subtotal:       priced.Subtotal,
		DeliveryFee:    priced.DeliveryFee,
		Currency:       priced.Currency,
		Items:          priced.Items,
		Address:        domain.Address(req.Address),
		Contact:        domain.Contact(req.Contact),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(log.Fields{
		"reference":      req.OrderReference,
		"transaction_id": result.TransactionID,
	}).Info("mobile money payment accepted")

	c.JSON(http.StatusCreated, mobileMoneyResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
	})
}

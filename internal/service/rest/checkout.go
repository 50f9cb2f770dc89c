package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/pricing"
)

// checkoutRequest — черновик заказа от клиента. Все суммы в нём
// недоверенные и пересчитываются по каталогу.
type checkoutRequest struct {
	Reference            string         `json:"reference" binding:"required"`
	Items                []itemPayload  `json:"items"`
	Subtotal             float64        `json:"subtotal"`
	DeliveryFee          float64        `json:"deliveryFee"`
	Total                float64        `json:"total"`
	Currency             string         `json:"currency"`
	PaymentMethod        string         `json:"paymentMethod" binding:"required"`
	GatewayTransactionID string         `json:"gatewayTransactionId"`
	Address              addressPayload `json:"address"`
	Contact              contactPayload `json:"contact"`
}

type itemPayload struct {
	ProductID string            `json:"productId"`
	Name      string            `json:"name"`
	Quantity  int32             `json:"quantity"`
	UnitPrice float64           `json:"unitPrice"`
	Variant   map[string]string `json:"variant,omitempty"`
}

type addressPayload struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Landmark string `json:"landmark"`
}

type contactPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// handleCheckout принимает черновик заказа, пересчитывает суммы по каталогу
// и создаёт заказ через движок сверки. Для карточной оплаты дополнительно
// сохраняется слепок черновика на PaymentRecord: событие процессора может
// прийти раньше, чем заказ будет виден.
func (s *Server) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		s.respondError(c, domain.ErrPaymentMethodInvalid)
		return
	}

	priced, err := s.pricing.Validate(pricing.CheckoutDraft{
		Reference:   req.Reference,
		Items:       req.items(),
		Subtotal:    req.Subtotal,
		DeliveryFee: req.DeliveryFee,
		Total:       req.Total,
		Currency:    req.Currency,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	address := domain.Address(req.Address)
	contact := domain.Contact(req.Contact)

	if method == domain.PaymentMethodCard && req.GatewayTransactionID != "" {
		record := domain.PaymentRecord{
			TransactionID:  req.GatewayTransactionID,
			OrderReference: req.Reference,
			Provider:       "card",
			Amount:         priced.Total,
			Currency:       priced.Currency,
			Snapshot: &domain.OrderSnapshot{
				Items:         priced.Items,
				Subtotal:      priced.Subtotal,
				DeliveryFee:   priced.DeliveryFee,
				Total:         priced.Total,
				Currency:      priced.Currency,
				PaymentMethod: method,
				Address:       address,
				Contact:       contact,
			},
		}
		if err := s.payments.Upsert(record); err != nil {
			s.respondError(c, err)
			return
		}
	}

	// Наличные подтверждаются при доставке, безналичные пути ждут
	// подтверждения шлюза.
	status := domain.OrderStatusProcessingPayment
	payStatus := domain.PaymentStatusProcessing
	if method == domain.PaymentMethodCash {
		status = domain.OrderStatusPending
		payStatus = domain.PaymentStatusPending
	}

	cand := domain.Candidate{
		Status:        &status,
		PaymentStatus: &payStatus,
		PaymentMethod: &method,
		Items:         priced.Items,
		Subtotal:      &priced.Subtotal,
		DeliveryFee:   &priced.DeliveryFee,
		Total:         &priced.Total,
		Currency:      &priced.Currency,
		Address:       &address,
		Contact:       &contact,
	}
	if req.GatewayTransactionID != "" {
		cand.GatewayTransactionID = &req.GatewayTransactionID
	}

	order, err := s.engine.Reconcile(req.Reference, cand)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(log.Fields{
		"reference":      order.Reference,
		"payment_method": order.PaymentMethod,
		"total":          order.Total,
	}).Info("checkout accepted")

	c.JSON(http.StatusCreated, orderPayload(order))
}

func (r *checkoutRequest) items() []domain.OrderItem {
	items := make([]domain.OrderItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Quantity,
			UnitPrice: item.UnitPrice,
			Variant:   item.Variant,
		}
	}
	return items
}

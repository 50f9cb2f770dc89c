package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// orderResponse — представление заказа в API.
type orderResponse struct {
	Reference            string         `json:"reference"`
	Items                []itemPayload  `json:"items"`
	Subtotal             float64        `json:"subtotal"`
	DeliveryFee          float64        `json:"deliveryFee"`
	Total                float64        `json:"total"`
	Currency             string         `json:"currency"`
	PaymentMethod        string         `json:"paymentMethod"`
	PaymentStatus        string         `json:"paymentStatus"`
	Status               string         `json:"status"`
	GatewayTransactionID string         `json:"gatewayTransactionId,omitempty"`
	Address              addressPayload `json:"address"`
	Contact              contactPayload `json:"contact"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	PaidAt               *time.Time     `json:"paidAt,omitempty"`
}

func orderPayload(order domain.Order) orderResponse {
	items := make([]itemPayload, len(order.Items))
	for i, item := range order.Items {
		items[i] = itemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Qty,
			UnitPrice: item.UnitPrice,
			Variant:   item.Variant,
		}
	}
	return orderResponse{
		Reference:            order.Reference,
		Items:                items,
		Subtotal:             order.Subtotal,
		DeliveryFee:          order.DeliveryFee,
		Total:                order.Total,
		Currency:             order.Currency,
		PaymentMethod:        string(order.PaymentMethod),
		PaymentStatus:        string(order.PaymentStatus),
		Status:               string(order.Status),
		GatewayTransactionID: order.GatewayTransactionID,
		Address:              addressPayload(order.Address),
		Contact:              contactPayload(order.Contact),
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
		PaidAt:               order.PaidAt,
	}
}

// handleGetOrder отдаёт текущее состояние заказа. Клиент опрашивает этот
// эндпоинт, дожидаясь подтверждения асинхронной оплаты.
func (s *Server) handleGetOrder(c *gin.Context) {
	reference := c.Param("reference")

	order, err := s.orders.Get(reference)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderPayload(order))
}

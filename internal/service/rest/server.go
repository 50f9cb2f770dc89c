package rest

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/card"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/momo"
	"github.com/vladislavdragonenkov/checkout/internal/service/pricing"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
)

// webhookSignatureHeader — заголовок с подписью тела события карточного
// процессора.
const webhookSignatureHeader = "X-Webhook-Signature"

// Server — HTTP API платформы: checkout, платёжные адаптеры и чтение заказа.
type Server struct {
	pricing  *pricing.Validator
	engine   *reconcile.Engine
	card     *card.Adapter
	momo     *momo.Adapter
	payments domain.PaymentRecordStore
	orders   domain.OrderStore
	logger   *log.Entry
}

// NewServer собирает HTTP-слой поверх готовых сервисов.
func NewServer(pricingValidator *pricing.Validator, engine *reconcile.Engine,
	cardAdapter *card.Adapter, momoAdapter *momo.Adapter,
	payments domain.PaymentRecordStore, orders domain.OrderStore, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}
	return &Server{
		pricing:  pricingValidator,
		engine:   engine,
		card:     cardAdapter,
		momo:     momoAdapter,
		payments: payments,
		orders:   orders,
		logger:   logger,
	}
}

// Router возвращает настроенный gin-маршрутизатор.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.POST("/checkout", s.handleCheckout)
		api.POST("/payments/card/webhook", s.handleCardWebhook)
		api.POST("/payments/mobile-money", s.handleMobileMoney)
		api.GET("/orders/:reference", s.handleGetOrder)
	}

	return router
}

package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/service/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/card"
	"github.com/vladislavdragonenkov/checkout/internal/service/gateway/momo"
	"github.com/vladislavdragonenkov/checkout/internal/service/pricing"
	"github.com/vladislavdragonenkov/checkout/internal/service/reconcile"
	"github.com/vladislavdragonenkov/checkout/internal/service/rest"
	"github.com/vladislavdragonenkov/checkout/internal/service/verify"
	"github.com/vladislavdragonenkov/checkout/internal/storage/retry"
)

// Dependencies — собранные зависимости сервиса.
type Dependencies struct {
	Orders   domain.OrderStore
	Payments domain.PaymentRecordStore
	Engine   *reconcile.Engine
	Server   *rest.Server
	Metrics  *metrics.ReconcileMetrics
	Kafka    *kafka.Producer
	Logger   *log.Entry

	storage *stores
}

// NewDependencies создаёт зависимости по конфигурации: хранилища за
// retry-обёрткой, движок сверки, платёжные адаптеры и HTTP-слой.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	storage, err := initStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	reconcileMetrics := metrics.NewReconcileMetrics()

	retrier := retry.New(cfg.RetryConfig(), logger.WithField("layer", "storage"),
		retry.WithObserver(reconcileMetrics.RecordStorageRetry))
	orders := retry.NewOrderStore(storage.orders, retrier)
	payments := retry.NewPaymentRecordStore(storage.payments, retrier)

	kafkaProducer, err := initKafkaProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		// Сервис работоспособен без событий, продолжаем без Kafka.
		kafkaProducer = nil
	}

	engineOpts := []reconcile.Option{reconcile.WithMetrics(reconcileMetrics)}
	if kafkaProducer != nil {
		engineOpts = append(engineOpts, reconcile.WithKafka(kafkaProducer))
	}
	engine := reconcile.NewEngine(orders, logger.WithField("component", "reconcile"), engineOpts...)

	var catalogSvc domain.CatalogService
	if len(cfg.Catalog.Prices) > 0 {
		catalogSvc = catalog.NewStaticService(cfg.Catalog.Prices)
	} else {
		logger.Warn("catalog prices are not configured, using development price list")
		catalogSvc = catalog.NewMockService(map[string]float64{"p1": 5000, "p2": 1500})
	}

	validator := pricing.NewValidator(catalogSvc, pricing.Config{
		FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
		FlatDeliveryFee:       cfg.Pricing.FlatDeliveryFee,
	}, logger.WithField("component", "pricing"))

	var verifier domain.VerificationService
	if cfg.Gateway.Momo.VerifyURL != "" {
		verifier = verify.NewHTTPService(cfg.Gateway.Momo.VerifyURL, cfg.Gateway.Momo.Timeout,
			logger.WithField("component", "verify"))
	} else {
		logger.Warn("momo verify url is not configured, using mock verification")
		verifier = verify.NewMockService()
	}

	cardAdapter := card.NewAdapter(cfg.Gateway.WebhookSecret, payments, orders, engine,
		logger.WithField("component", "card_gateway"))
	momoAdapter := momo.NewAdapter(verifier, payments, engine,
		logger.WithField("component", "momo_gateway"))

	server := rest.NewServer(validator, engine, cardAdapter, momoAdapter, payments, orders,
		logger.WithField("layer", "rest"))

	return &Dependencies{
		Orders:   orders,
		Payments: payments,
		Engine:   engine,
		Server:   server,
		Metrics:  reconcileMetrics,
		Kafka:    kafkaProducer,
		Logger:   logger,
		storage:  storage,
	}, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	closeKafka(d.Kafka, d.Logger)
	d.storage.close(d.Logger)
}

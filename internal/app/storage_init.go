package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

// stores — инициализированный слой хранения. Close и Ping могут быть nil
// для in-memory варианта.
type stores struct {
	orders   domain.OrderStore
	payments domain.PaymentRecordStore
	closeFn  func() error
	pingFn   func() error
}

// initStores подключает Postgres, если задан DSN, иначе поднимает
// in-memory хранилища для разработки и тестов.
func initStores(ctx context.Context, cfg Config, logger *log.Entry) (*stores, error) {
	if cfg.Postgres.DSN == "" {
		logger.Info("postgres dsn is empty, using in-memory stores")
		return &stores{
			orders:   memory.NewOrderStore(),
			payments: memory.NewPaymentRecordStore(),
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db := store.DB()
	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	logger.Info("connected to postgres")
	return &stores{
		orders:   postgres.NewOrderStore(store),
		payments: postgres.NewPaymentRecordStore(store),
		closeFn:  store.Close,
		pingFn: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(ctx)
		},
	}, nil
}

func (s *stores) close(logger *log.Entry) {
	if s.closeFn == nil {
		return
	}
	if err := s.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

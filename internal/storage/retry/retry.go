package retry

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Config — конфигурация retry-логики. Передаётся явно при конструировании:
// никакого глобального изменяемого состояния.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Observer вызывается на каждую неудачную попытку — хук для метрик и логов.
type Observer func(op string, attempt int, err error)

// Retrier повторяет операции хранилища при временных ошибках
// с экспоненциальной задержкой.
type Retrier struct {
	config   Config
	logger   *log.Entry
	observer Observer
}

// Option настраивает Retrier.
type Option func(*Retrier)

// WithObserver подключает хук, вызываемый на каждую неудачную попытку.
func WithObserver(observer Observer) Option {
	return func(r *Retrier) {
		r.observer = observer
	}
}

// New создаёт Retrier с указанной конфигурацией.
func New(config Config, logger *log.Entry, opts ...Option) *Retrier {
	if logger == nil {
		logger = log.New().WithField("component", "storage-retry")
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	r := &Retrier{
		config: config,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do выполняет операцию, повторяя её только при временных ошибках
// хранилища. Невременные ошибки возвращаются с первой попытки; после
// исчерпания попыток возвращается последняя наблюдавшаяся ошибка.
func (r *Retrier) Do(op string, fn func() error) error {
	var lastErr error
	delay := r.config.InitialDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.WithFields(log.Fields{
					"op":      op,
					"attempt": attempt,
				}).Info("storage operation succeeded after retry")
			}
			return nil
		}

		if !domain.IsTransientStorage(err) {
			return err
		}

		lastErr = err
		if r.observer != nil {
			r.observer(op, attempt, err)
		}

		if attempt < r.config.MaxAttempts {
			r.logger.WithFields(log.Fields{
				"op":      op,
				"attempt": attempt,
				"delay":   delay,
				"error":   err,
			}).Warn("transient storage error, retrying")

			time.Sleep(delay)

			// Экспоненциальная задержка с ограничением.
			delay = time.Duration(float64(delay) * r.config.BackoffFactor)
			if delay > r.config.MaxDelay {
				delay = r.config.MaxDelay
			}
		}
	}

	r.logger.WithFields(log.Fields{
		"op":           op,
		"max_attempts": r.config.MaxAttempts,
		"error":        lastErr,
	}).Error("storage operation failed after all retry attempts")

	return lastErr
}

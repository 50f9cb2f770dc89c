package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/vladislavdragonenkov/checkout/internal/storage/retry"
)

// envPrefix — префикс переменных окружения, вложенность через __,
// например CHECKOUT_POSTGRES__DSN или CHECKOUT_GATEWAY__WEBHOOK_SECRET.
const envPrefix = "CHECKOUT_"

// Config — полная конфигурация сервиса. Загружается из configs/base.yaml
// с наложением файла окружения и переменных окружения.
type Config struct {
	App struct {
		Name        string `koanf:"name"`
		HTTPAddr    string `koanf:"http_addr"`
		MetricsAddr string `koanf:"metrics_addr"`
		LogLevel    string `koanf:"log_level"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Postgres struct {
		// DSN пустой — сервис работает на in-memory хранилищах.
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"postgres"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
	} `koanf:"kafka"`

	Retry struct {
		MaxAttempts   int           `koanf:"max_attempts"`
		InitialDelay  time.Duration `koanf:"initial_delay"`
		MaxDelay      time.Duration `koanf:"max_delay"`
		BackoffFactor float64       `koanf:"backoff_factor"`
	} `koanf:"retry"`

	Pricing struct {
		FreeDeliveryThreshold float64 `koanf:"free_delivery_threshold"`
		FlatDeliveryFee       float64 `koanf:"flat_delivery_fee"`
	} `koanf:"pricing"`

	Catalog struct {
		// Prices — статический прайс-лист productId -> цена за единицу.
		Prices map[string]float64 `koanf:"prices"`
	} `koanf:"catalog"`

	Gateway struct {
		// WebhookSecret — общий секрет подписи событий карточного процессора.
		WebhookSecret string `koanf:"webhook_secret"`
		Momo          struct {
			// VerifyURL пустой — используется mock-верификация.
			VerifyURL string        `koanf:"verify_url"`
			Timeout   time.Duration `koanf:"timeout"`
		} `koanf:"momo"`
	} `koanf:"gateway"`
}

// Load читает конфигурацию: base.yaml, затем <envName>.yaml (необязателен),
// затем переменные окружения.
func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig возвращает конфигурацию для локального запуска и тестов:
// in-memory хранилища, mock-верификация, без Kafka.
func DefaultConfig() Config {
	var cfg Config
	cfg.App.Name = "checkout-service"
	cfg.App.HTTPAddr = ":8080"
	cfg.App.MetricsAddr = ":9090"
	cfg.App.LogLevel = "info"
	cfg.HTTP.ReadTimeout = 10 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = time.Minute
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialDelay = 100 * time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Second
	cfg.Retry.BackoffFactor = 2.0
	cfg.Pricing.FreeDeliveryThreshold = 10000
	cfg.Pricing.FlatDeliveryFee = 1000
	cfg.Gateway.WebhookSecret = "dev-secret"
	cfg.Gateway.Momo.Timeout = 10 * time.Second
	return cfg
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("gateway.webhook_secret required")
	}
	if c.Pricing.FlatDeliveryFee < 0 || c.Pricing.FreeDeliveryThreshold < 0 {
		return fmt.Errorf("pricing values must be non-negative")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	return nil
}

// RetryConfig переводит секцию retry в конфигурацию обёртки хранилища.
func (c Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:   c.Retry.MaxAttempts,
		InitialDelay:  c.Retry.InitialDelay,
		MaxDelay:      c.Retry.MaxDelay,
		BackoffFactor: c.Retry.BackoffFactor,
	}
}

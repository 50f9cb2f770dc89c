package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/app"
)

// setupLogger настраивает формат логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// resolveEnvName выбирает имя окружения: явный флаг побеждает переменную
// окружения CHECKOUT_ENV.
func resolveEnvName(flagValue string, lookup envLookup) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v, ok := lookup("CHECKOUT_ENV"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func main() {
	setupLogger()

	var (
		configDir string
		envName   string
	)
	flag.StringVar(&configDir, "config", "configs", "directory with base.yaml and environment overlays")
	flag.StringVar(&envName, "env", "", "environment overlay name (dev, prod, ...); fallback: CHECKOUT_ENV")
	flag.Parse()

	envName = resolveEnvName(envName, os.LookupEnv)

	cfg, err := app.Load(configDir, envName)
	if err != nil {
		log.WithError(err).Fatal("не удалось загрузить конфигурацию")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.App.HTTPAddr,
		"metrics_addr": cfg.App.MetricsAddr,
	}).Info("запускаем checkout-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("checkout-service остановлен")
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gestor/internal/amqp"
	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/provider"
	"gestor/internal/storage"
	"gestor/internal/whatsapp"
	"gestor/internal/worker"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" || cfg.ProviderBaseURL == "" || cfg.WhatsAppURL == "" {
		logger.Error("worker needs AMQP_URL, PROVIDER_BASE_URL and WHATSAPP_GATEWAY_URL")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	providerClient, err := provider.New(provider.Config{
		BaseURL:  cfg.ProviderBaseURL,
		CertFile: cfg.ProviderCertFile,
		KeyFile:  cfg.ProviderKeyFile,
		CAFile:   cfg.ProviderCAFile,
		ClientID: cfg.ProviderClientID,
		Secret:   cfg.ProviderSecret,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize invoice provider client", log.FieldError, err)
		os.Exit(1)
	}

	messenger := whatsapp.New(cfg.WhatsAppURL, cfg.WhatsAppAPIKey, logger)
	dispatcher := worker.NewDispatcher(store, providerClient, messenger, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting gestor-worker", "queue", cfg.AMQPQueue)
	err = amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger,
		func(msg *amqp.BoletoDispatchMessage) error {
			return dispatcher.Handle(ctx, msg)
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}

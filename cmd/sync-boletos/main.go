package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gestor/internal/config"
	"gestor/internal/log"
	"gestor/internal/provider"
	"gestor/internal/services"
	"gestor/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single sync and exit")
	flag.Parse()

	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentSync})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.ProviderBaseURL == "" {
		logger.Error("sync needs PROVIDER_BASE_URL")
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

	// The sync never publishes dispatches.
	boletos := services.NewBoletoService(store, nil, providerClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func() {
		report, err := boletos.SyncAll(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sync run failed", log.FieldError, err)
			return
		}
		logger.Info("sync run finished",
			"companies", report.Companies,
			"failed_companies", report.FailedCompanies,
			"checked", report.Checked,
			"updated", report.Updated)
	}

	run()
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	logger.Info("sync scheduled", "interval", cfg.SyncInterval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("sync stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}

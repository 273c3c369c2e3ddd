package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gestor/internal/amqp"
	"gestor/internal/cache"
	"gestor/internal/config"
	apphttp "gestor/internal/http"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/provider"
	"gestor/internal/services"
	"gestor/internal/storage"
	"gestor/internal/whatsapp"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.Config{})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Dispatch publishing is optional; without a broker the dispatch
	// endpoint reports the failure and everything else keeps working.
	var publisher services.DispatchPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled, boleto dispatch unavailable")
		publisher = unavailablePublisher{}
	}

	var searcher services.InvoiceSearcher
	if cfg.ProviderBaseURL != "" {
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
		searcher = providerClient
	} else {
		logger.Info("invoice provider disabled, boleto sync unavailable")
		searcher = unavailableSearcher{}
	}

	var gateway apphttp.ConnectionTester
	if cfg.WhatsAppURL != "" {
		gateway = whatsapp.New(cfg.WhatsAppURL, cfg.WhatsAppAPIKey, logger)
	} else {
		logger.Info("WhatsApp gateway disabled")
	}

	reports := cache.NewLRU[*ledger.Report](cfg.CacheSize, cfg.CacheTTL)
	cashflow := services.NewCashFlowService(store, reports, cfg.RevenueAdjustment, logger)
	boletos := services.NewBoletoService(store, publisher, searcher, logger)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        apphttp.NewServer(store, cashflow, boletos, gateway, logger).Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting gestor server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reports.Janitor(ctx, cfg.CacheTTL)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

type unavailablePublisher struct{}

func (unavailablePublisher) PublishBoletoDispatch(context.Context, string) error {
	return errors.New("dispatch queue not configured")
}

type unavailableSearcher struct{}

func (unavailableSearcher) SearchInvoices(context.Context, string, string) ([]provider.Invoice, error) {
	return nil, errors.New("invoice provider not configured")
}

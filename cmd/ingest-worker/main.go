package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"salesdash/internal/amqp"
	"salesdash/internal/config"
	"salesdash/internal/ingest"
	applog "salesdash/internal/log"
	"salesdash/internal/storage"
)

// ingest-worker refreshes the transaction store from the remote feed on a
// fixed interval, independently of the HTTP server.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting ingest-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var events ingest.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without eventing",
				applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	}

	fetcher := ingest.NewFetcher(cfg.SourceURL, cfg.FetchTimeout)
	service := ingest.NewService(fetcher, repo, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Ingest worker configured",
		"interval", cfg.IngestInterval,
		applog.FieldSource, cfg.SourceURL,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.IngestInterval)
	defer ticker.Stop()

	// Run an initial ingestion on startup
	runIngestion(ctx, logger, service)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runIngestion(ctx, logger, service)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Ingest-worker shutdown complete")
}

func runIngestion(ctx context.Context, logger *applog.Logger, service *ingest.Service) {
	logger.Info("Refreshing transactions from source",
		applog.FieldOperation, applog.OpFetch)
	if _, err := service.FetchAndStore(ctx); err != nil {
		logger.Error("Ingestion run failed", applog.FieldError, err)
	}
}

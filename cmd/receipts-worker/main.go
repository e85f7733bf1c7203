package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yerko-henz/receipts-registry-sub000/internal/amqp"
	"github.com/yerko-henz/receipts-registry-sub000/internal/config"
	"github.com/yerko-henz/receipts-registry-sub000/internal/i18n"
	applog "github.com/yerko-henz/receipts-registry-sub000/internal/log"
	"github.com/yerko-henz/receipts-registry-sub000/internal/services"
	ports "github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
	gsheet "github.com/yerko-henz/receipts-registry-sub000/internal/sheets/google"
	mem "github.com/yerko-henz/receipts-registry-sub000/internal/sheets/memory"
	"github.com/yerko-henz/receipts-registry-sub000/internal/storage"
	"github.com/yerko-henz/receipts-registry-sub000/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("worker")
	logger.Info("Starting receipts-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var exporter ports.Exporter
	switch cfg.ExporterBackend {
	case "google":
		cli, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google exporter", "error", err)
			os.Exit(1)
		}
		exporter = cli
		logger.Info("Initialized Google exporter")
	default:
		exporter = mem.New()
		logger.Info("Initialized memory exporter")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncSvc := services.NewSyncService(exporter, cfg.SpreadsheetTitle, i18n.Translator(cfg.Locale))
	// The worker never publishes sync requests, it only serves them.
	receiptSvc := services.NewReceiptService(repo, syncSvc, nil)
	syncWorker := worker.NewSyncWorker(repo, receiptSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup sweep covers anything missed while the worker was down
	if err := syncWorker.SweepAllUsers(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeSyncRequests(ctx, func(msg *amqp.SyncRequestMessage) error {
			return syncWorker.HandleSyncRequest(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.SweepAllUsers(ctx); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				}
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
	logger.Info("Worker shutdown complete")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yerko-henz/receipts-registry-sub000/internal/amqp"
	"github.com/yerko-henz/receipts-registry-sub000/internal/config"
	apphttp "github.com/yerko-henz/receipts-registry-sub000/internal/http"
	"github.com/yerko-henz/receipts-registry-sub000/internal/i18n"
	applog "github.com/yerko-henz/receipts-registry-sub000/internal/log"
	"github.com/yerko-henz/receipts-registry-sub000/internal/services"
	ports "github.com/yerko-henz/receipts-registry-sub000/internal/sheets"
	gsheet "github.com/yerko-henz/receipts-registry-sub000/internal/sheets/google"
	mem "github.com/yerko-henz/receipts-registry-sub000/internal/sheets/memory"
	"github.com/yerko-henz/receipts-registry-sub000/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.Setup("api")

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

	// AMQP is optional for the API: creates still work, syncs just stay manual.
	var publisher services.SyncPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, sync requests will not be queued", "error", err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	syncSvc := services.NewSyncService(exporter, cfg.SpreadsheetTitle, i18n.Translator(cfg.Locale))
	receiptSvc := services.NewReceiptService(repo, syncSvc, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, receiptSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 90 * time.Second // sync calls wait on the remote service
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting receipts server", "port", cfg.Port, "backend", cfg.ExporterBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

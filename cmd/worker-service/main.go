package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/job-hoarder/internal/app"
	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/enrichment"
	"github.com/cuongbtq/job-hoarder/internal/llm"
	"github.com/cuongbtq/job-hoarder/internal/storage"
	"github.com/cuongbtq/job-hoarder/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config",
		app.DefaultConfigPath("WORKER_SERVICE_CONFIG_PATH", "configs/worker-service/config.yaml"),
		"Path to configuration file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("llm_provider", cfg.LLM.Provider),
	)
	if cfg.LLM.APIKey == "" {
		appLogger.Warn("No language model API key configured; enrichment tasks will be skipped")
	}

	dbClient, err := app.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	rabbitClient, err := app.InitRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)
	resolver := llm.NewResolver(cfg.LLM, nil, appLogger.Logger)

	workerInstance, err := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Source:        dispatch.NewRabbitQueue(rabbitClient, workerID, appLogger.Logger),
		Processor:     enrichment.NewProcessor(store, resolver, appLogger.Logger),
		WorkerID:      workerID,
		Concurrency:   cfg.Worker.Concurrency,
		SoftTimeLimit: cfg.Worker.SoftTimeLimit,
		HardTimeLimit: cfg.Worker.HardTimeLimit,
		MaxAttempts:   cfg.Worker.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
			return err
		}
		appLogger.Warn("Delivery source closed, shutting down")
	}

	// Stop taking new deliveries; attempts already running finish or hit
	// the hard time limit.
	cancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit",
			slog.Duration("shutdown_timeout", cfg.Worker.ShutdownTimeout),
		)
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

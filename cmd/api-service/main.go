package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-hoarder/internal/api/handler"
	"github.com/cuongbtq/job-hoarder/internal/api/router"
	"github.com/cuongbtq/job-hoarder/internal/app"
	"github.com/cuongbtq/job-hoarder/internal/config"
	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/intake"
	"github.com/cuongbtq/job-hoarder/internal/storage"
	"github.com/cuongbtq/job-hoarder/shared/postgresql"
	"github.com/cuongbtq/job-hoarder/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config",
		app.DefaultConfigPath("API_SERVICE_CONFIG_PATH", "configs/api-service/config.yaml"),
		"Path to configuration file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

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

	r := initRouter(cfg, appLogger.Logger, dbClient, rabbitClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// rabbitHealth reports the broker connection state on /health
type rabbitHealth struct {
	client *rabbitmq.Client
}

func (h rabbitHealth) HealthCheck(ctx context.Context) error {
	if !h.client.IsConnected() {
		return errors.New("rabbitmq is not connected")
	}
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, dbClient *postgresql.Client, rabbitClient *rabbitmq.Client) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	store := storage.NewStorage(dbClient.GetDB(), logger)
	queue := dispatch.NewRabbitQueue(rabbitClient, cfg.App.Name, logger)

	return router.SetupRouter(&handler.Dependencies{
		Logger:       logger,
		Store:        store,
		Intake:       intake.NewCoordinator(store, queue, logger),
		ServiceName:  cfg.App.Name,
		MaxPageBytes: cfg.Server.MaxPageBytes,
		HealthChecks: map[string]handler.HealthChecker{
			"database": dbClient,
			"rabbitmq": rabbitHealth{client: rabbitClient},
		},
	})
}

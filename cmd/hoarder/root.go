package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/job-hoarder/internal/app"
	"github.com/cuongbtq/job-hoarder/internal/config"
	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/intake"
	"github.com/cuongbtq/job-hoarder/internal/storage"
	"github.com/cuongbtq/job-hoarder/shared/logger"
	"github.com/cuongbtq/job-hoarder/shared/postgresql"
	"github.com/cuongbtq/job-hoarder/shared/rabbitmq"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "hoarder",
	Short:         "Operator tool for the job hoarder pipeline",
	Long:          "hoarder submits job postings, stores and promotes captured pages, and runs enrichment for a single posting.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"path to config file (default: HOARDER_CONFIG env var or configs/worker-service/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// env holds the clients a command needs. Fields are nil when not opened.
type env struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *postgresql.Client
	rabbit *rabbitmq.Client
	store  *storage.Storage
}

// setup loads config and connects to PostgreSQL. withQueue also connects
// to RabbitMQ; when the broker is unreachable the command still runs and
// dispatch is reported as not queued.
func setup(withQueue bool) (*env, error) {
	path := cfgPath
	if path == "" {
		path = app.DefaultConfigPath("HOARDER_CONFIG", "configs/worker-service/config.yaml")
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Logs go to stderr so command output stays parseable.
	cfg.Logging.Output = "stderr"
	if debug {
		cfg.Logging.Level = "debug"
	} else {
		cfg.Logging.Level = "warn"
	}
	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg, logger: appLogger}

	e.db, err = app.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	e.store = storage.NewStorage(e.db.GetDB(), appLogger.Logger)

	if withQueue {
		e.rabbit, err = app.InitRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			appLogger.Warn("RabbitMQ unavailable, enrichment will not be queued", slog.Any("error", err))
		}
	}

	return e, nil
}

func (e *env) enqueuer() dispatch.Enqueuer {
	if e.rabbit == nil {
		return unavailableQueue{}
	}
	return dispatch.NewRabbitQueue(e.rabbit, "hoarder-cli", e.logger.Logger)
}

func (e *env) coordinator() *intake.Coordinator {
	return intake.NewCoordinator(e.store, e.enqueuer(), e.logger.Logger)
}

func (e *env) close() {
	if e.rabbit != nil {
		e.rabbit.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
	if e.logger != nil {
		e.logger.Close()
	}
}

// unavailableQueue stands in for the broker when it could not be reached.
type unavailableQueue struct{}

func (unavailableQueue) Enqueue(ctx context.Context, jobPostingID int64) error {
	return domain.TransportError("publish enrichment message", errors.New("rabbitmq is not connected"))
}

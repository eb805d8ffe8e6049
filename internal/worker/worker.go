package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/enrichment"
)

// TaskProcessor runs one enrichment attempt.
type TaskProcessor interface {
	Process(ctx context.Context, jobPostingID int64) enrichment.Result
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        dispatch.Source
	Processor     TaskProcessor
	WorkerID      string
	Concurrency   int
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	MaxAttempts   int
}

// Worker pulls enrichment deliveries and runs them on a fixed pool of
// goroutines.
type Worker struct {
	logger        *slog.Logger
	source        dispatch.Source
	processor     TaskProcessor
	workerID      string
	concurrency   int
	softTimeLimit time.Duration
	hardTimeLimit time.Duration
	maxAttempts   int

	jobsChan chan dispatch.Delivery
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Source == nil || cfg.Processor == nil {
		return nil, fmt.Errorf("worker requires a source and a processor")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.HardTimeLimit <= 0 {
		return nil, fmt.Errorf("hard time limit must be positive")
	}

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Worker{
		logger:        cfg.Logger.With(slog.String("worker_id", workerID)),
		source:        cfg.Source,
		processor:     cfg.Processor,
		workerID:      workerID,
		concurrency:   cfg.Concurrency,
		softTimeLimit: cfg.SoftTimeLimit,
		hardTimeLimit: cfg.HardTimeLimit,
		maxAttempts:   maxAttempts,
		jobsChan:      make(chan dispatch.Delivery),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Start consumes deliveries until ctx is canceled or the source closes.
// It returns once the dispatcher stops; in-flight attempts keep running
// until Stop.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.concurrency),
		slog.Duration("soft_time_limit", w.softTimeLimit),
		slog.Duration("hard_time_limit", w.hardTimeLimit),
		slog.Int("max_attempts", w.maxAttempts),
	)

	deliveries, err := w.source.Consume(ctx)
	if err != nil {
		close(w.done)
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)
	close(w.done)
	return nil
}

// Stop waits for the dispatcher to exit and for every in-flight attempt to
// be settled.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
	<-w.done
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

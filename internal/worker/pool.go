package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/enrichment"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool", slog.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop processes deliveries until jobsChan is closed. Attempts that
// already started run to completion even if ctx is canceled.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	log := w.logger.With(slog.String("worker_name", workerName))
	log.Debug("Worker goroutine started")

	for delivery := range w.jobsChan {
		msg := delivery.Message()
		log.Info("Worker received delivery",
			slog.Int64("job_posting_id", msg.JobPostingID),
			slog.Int("attempt", msg.Attempt),
		)

		result := w.processMessage(context.WithoutCancel(ctx), msg)
		w.settle(log, delivery, result)
	}

	log.Debug("Worker goroutine stopping - jobsChan closed")
}

// Action is how a delivery is settled after an attempt.
type Action string

const (
	ActionAck    Action = "ack"
	ActionRetry  Action = "retry"
	ActionReject Action = "reject"
)

// decide maps an attempt outcome onto a settlement. Retryable failures are
// republished until maxAttempts attempts have run.
func decide(result enrichment.Result, attempt, maxAttempts int) Action {
	switch result.Status {
	case enrichment.StatusSuccess, enrichment.StatusSkipped:
		return ActionAck
	}
	if result.Kind == domain.KindNotFound || !result.Retryable() {
		return ActionReject
	}
	if attempt+1 < maxAttempts {
		return ActionRetry
	}
	return ActionReject
}

func (w *Worker) settle(log *slog.Logger, delivery dispatch.Delivery, result enrichment.Result) {
	msg := delivery.Message()
	action := decide(result, msg.Attempt, w.maxAttempts)

	attrs := []any{
		slog.Int64("job_posting_id", msg.JobPostingID),
		slog.Int("attempt", msg.Attempt),
		slog.String("status", string(result.Status)),
		slog.String("detail", result.Detail),
		slog.String("action", string(action)),
	}

	var err error
	switch action {
	case ActionAck:
		err = delivery.Ack()
		log.Info("Enrichment task finished", attrs...)
	case ActionRetry:
		// Settling must not depend on a canceled consumer context.
		err = delivery.Retry(context.Background())
		log.Warn("Enrichment attempt failed, retrying", append(attrs, slog.String("kind", string(result.Kind)))...)
	case ActionReject:
		err = delivery.Reject()
		log.Error("Enrichment task failed permanently", append(attrs, slog.String("kind", string(result.Kind)))...)
	}

	if err != nil {
		log.Error("Failed to settle delivery",
			slog.Int64("job_posting_id", msg.JobPostingID),
			slog.String("action", string(action)),
			slog.Any("error", err),
		)
	}
}

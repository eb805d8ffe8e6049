package worker

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/job-hoarder/internal/dispatch"
)

// startMessageDispatcher hands deliveries to the worker pool. Because
// jobsChan is unbuffered, a delivery is only taken from the source when a
// worker goroutine is free.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan dispatch.Delivery) {
	w.logger.Info("Message dispatcher started")
	defer close(w.jobsChan)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - stopChan closed")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Delivery channel closed")
				return
			}

			msg := delivery.Message()
			select {
			case w.jobsChan <- delivery:
				w.logger.Debug("Delivery dispatched to worker pool",
					slog.Int64("job_posting_id", msg.JobPostingID),
					slog.String("message_id", msg.MessageID),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				w.requeue(delivery)
				return
			case <-w.stopChan:
				w.logger.Info("Message dispatcher stopped while dispatching")
				w.requeue(delivery)
				return
			}
		}
	}
}

// requeue hands an unprocessed delivery back without counting an attempt.
func (w *Worker) requeue(delivery dispatch.Delivery) {
	if err := delivery.Requeue(); err != nil {
		w.logger.Error("Failed to requeue delivery on shutdown",
			slog.Int64("job_posting_id", delivery.Message().JobPostingID),
			slog.Any("error", err),
		)
	}
}

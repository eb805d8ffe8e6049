package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/enrichment"
)

// processMessage runs one attempt under the hard time limit. Crossing the
// soft limit only logs.
func (w *Worker) processMessage(ctx context.Context, msg dispatch.Message) (result enrichment.Result) {
	start := time.Now()
	log := w.logger.With(
		slog.Int64("job_posting_id", msg.JobPostingID),
		slog.String("message_id", msg.MessageID),
	)

	attemptCtx, cancel := context.WithTimeout(ctx, w.hardTimeLimit)
	defer cancel()

	if w.softTimeLimit > 0 && w.softTimeLimit < w.hardTimeLimit {
		soft := time.AfterFunc(w.softTimeLimit, func() {
			log.Warn("Enrichment attempt exceeded soft time limit",
				slog.Duration("soft_time_limit", w.softTimeLimit),
				slog.Duration("hard_time_limit", w.hardTimeLimit),
			)
		})
		defer soft.Stop()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Enrichment attempt panicked", slog.Any("panic", r))
			result = enrichment.Result{
				JobPostingID: msg.JobPostingID,
				Status:       enrichment.StatusError,
				Detail:       fmt.Sprintf("panic: %v", r),
				Kind:         domain.KindInternal,
				Err:          fmt.Errorf("enrichment attempt panicked: %v", r),
			}
		}
	}()

	result = w.processor.Process(attemptCtx, msg.JobPostingID)

	// A processor that ignored the deadline still counts as timed out.
	if attemptCtx.Err() == context.DeadlineExceeded && result.Status == enrichment.StatusError {
		result.Kind = domain.KindTimeout
	}

	log.Debug("Enrichment attempt completed",
		slog.String("status", string(result.Status)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result
}

// Package enrichment turns a stored job posting into an EnrichmentResult by
// asking a language model and parsing its answer.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/llm"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

const skippedNoCredential = "AI summarization skipped - no API key configured"

// Store is the slice of the record store the processor needs.
type Store interface {
	GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error)
	GetEnrichmentByJobPostingID(ctx context.Context, jobPostingID int64) (*domain.EnrichmentResult, error)
	CreateEnrichmentResult(ctx context.Context, result *domain.EnrichmentResult) (*domain.EnrichmentResult, error)
}

// GatewayResolver picks the configured language model.
type GatewayResolver interface {
	Resolve() (llm.Gateway, error)
}

// Result is the outcome of one enrichment attempt.
type Result struct {
	JobPostingID int64
	Status       Status
	Detail       string
	Kind         domain.Kind
	Err          error
	// RawResponse is kept on parse failures.
	RawResponse string
	Enrichment  *domain.EnrichmentResult
}

// Retryable reports whether another attempt could succeed.
func (r Result) Retryable() bool {
	return r.Status == StatusError && r.Kind.Retryable()
}

type Processor struct {
	store    Store
	resolver GatewayResolver
	logger   *slog.Logger
}

func NewProcessor(store Store, resolver GatewayResolver, logger *slog.Logger) *Processor {
	return &Processor{
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// Process enriches one job posting. It never panics on bad model output and
// reports every failure through the returned Result.
func (p *Processor) Process(ctx context.Context, jobPostingID int64) Result {
	log := p.logger.With(slog.Int64("job_posting_id", jobPostingID))

	posting, err := p.store.GetJobPosting(ctx, jobPostingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return p.failed(log, jobPostingID, fmt.Sprintf("JobPost with ID %d not found", jobPostingID), err, "")
		}
		return p.failed(log, jobPostingID, "failed to load job posting", storeError("load job posting", err), "")
	}

	existing, err := p.store.GetEnrichmentByJobPostingID(ctx, jobPostingID)
	switch {
	case err == nil:
		log.Info("Job posting already enriched", slog.Int64("enrichment_id", existing.ID))
		return Result{
			JobPostingID: jobPostingID,
			Status:       StatusSuccess,
			Detail:       fmt.Sprintf("Job post %d already summarized", jobPostingID),
			Enrichment:   existing,
		}
	case !errors.Is(err, domain.ErrNotFound):
		return p.failed(log, jobPostingID, "failed to check existing enrichment", storeError("check enrichment", err), "")
	}

	gateway, err := p.resolver.Resolve()
	if err != nil {
		if errors.Is(err, domain.ErrNoCredential) {
			log.Warn("No language model credential configured, skipping enrichment", slog.Any("error", err))
			return Result{
				JobPostingID: jobPostingID,
				Status:       StatusSkipped,
				Detail:       skippedNoCredential,
				Kind:         domain.KindConfiguration,
				Err:          err,
			}
		}
		return p.failed(log, jobPostingID, "failed to resolve language model", err, "")
	}

	log.Info("Requesting enrichment",
		slog.String("title", posting.Title),
		slog.Int64("company_id", posting.CompanyID),
		slog.Int("description_length", len(posting.Description)),
	)

	raw, err := gateway.Complete(ctx, SystemPrompt, UserPrompt(posting))
	if err != nil {
		return p.failed(log, jobPostingID, "language model call failed", err, "")
	}

	fields, err := ParseResponse(raw)
	if err != nil {
		log.Error("Failed to parse language model response",
			slog.Any("error", err),
			slog.String("raw_response", raw),
		)
		return p.failed(log, jobPostingID, "failed to parse language model response", err, raw)
	}
	if !domain.IsKnownSeniority(fields.SeniorityLevel) {
		log.Warn("Seniority level outside the known set, storing as given",
			slog.String("seniority_level", fields.SeniorityLevel),
		)
	}

	created, err := p.store.CreateEnrichmentResult(ctx, fields.ToResult(jobPostingID))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent attempt won the insert.
			log.Info("Enrichment stored by a concurrent attempt")
			return Result{
				JobPostingID: jobPostingID,
				Status:       StatusSuccess,
				Detail:       fmt.Sprintf("Job post %d already summarized", jobPostingID),
			}
		}
		if errors.Is(err, domain.ErrNotFound) {
			// The posting was deleted while the model was answering.
			return p.failed(log, jobPostingID, fmt.Sprintf("JobPost with ID %d not found", jobPostingID), err, "")
		}
		return p.failed(log, jobPostingID, "failed to store enrichment", storeError("store enrichment", err), "")
	}

	log.Info("Job posting enriched",
		slog.Int64("enrichment_id", created.ID),
		slog.String("seniority_level", created.SeniorityLevel),
		slog.Int("skills", len(created.TechnicalSkills)),
	)
	return Result{
		JobPostingID: jobPostingID,
		Status:       StatusSuccess,
		Detail:       fmt.Sprintf("Successfully summarized job post %d", jobPostingID),
		Enrichment:   created,
	}
}

func (p *Processor) failed(log *slog.Logger, jobPostingID int64, detail string, err error, raw string) Result {
	kind := domain.KindOf(err)
	log.Error("Enrichment failed",
		slog.String("detail", detail),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	)
	return Result{
		JobPostingID: jobPostingID,
		Status:       StatusError,
		Detail:       detail,
		Kind:         kind,
		Err:          err,
		RawResponse:  raw,
	}
}

// storeError marks record store failures as transport so the attempt is
// retried, unless the attempt's own deadline expired.
func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return domain.TransportError(op, err)
}

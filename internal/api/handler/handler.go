package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/intake"
	"github.com/cuongbtq/job-hoarder/internal/storage"
)

// RecordStore is the read/update surface the HTTP layer needs.
type RecordStore interface {
	GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error)
	ListJobPostings(ctx context.Context, filter storage.JobPostingFilter) (*storage.JobPostingPage, error)
	UpdateJobPosting(ctx context.Context, id int64, patch domain.JobPostingPatch) (*domain.JobPosting, error)
	DeleteJobPosting(ctx context.Context, id int64) error

	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
	ListCompanies(ctx context.Context) ([]domain.Company, error)
	ListJobPostingsByCompany(ctx context.Context, companyID int64) ([]domain.JobPosting, error)
	UpdateCompany(ctx context.Context, id int64, patch domain.CompanyPatch) (*domain.Company, error)
	DeleteCompany(ctx context.Context, id int64) error

	GetEnrichmentResult(ctx context.Context, id int64) (*domain.EnrichmentResult, error)
	GetEnrichmentByJobPostingID(ctx context.Context, jobPostingID int64) (*domain.EnrichmentResult, error)
	ListEnrichmentResults(ctx context.Context) ([]domain.EnrichmentResult, error)
	UpdateEnrichmentResult(ctx context.Context, id int64, patch domain.EnrichmentResultPatch) (*domain.EnrichmentResult, error)
	DeleteEnrichmentResult(ctx context.Context, id int64) error

	CreateCapturedPage(ctx context.Context, url, pageHTML string) (*domain.CapturedPage, error)
	GetCapturedPage(ctx context.Context, id int64) (*domain.CapturedPage, error)
	GetCapturedPageByURL(ctx context.Context, url string) (*domain.CapturedPage, error)
	ListCapturedPages(ctx context.Context) ([]domain.CapturedPage, error)
	UpdateCapturedPage(ctx context.Context, id int64, patch domain.CapturedPagePatch) (*domain.CapturedPage, error)
	DeleteCapturedPage(ctx context.Context, id int64) error
}

// Intake creates job postings and queues enrichment.
type Intake interface {
	Submit(ctx context.Context, req intake.SubmitRequest) (*intake.Submission, error)
	Redispatch(ctx context.Context, jobPostingID int64) (intake.DispatchResult, error)
	PromoteCapturedPage(ctx context.Context, pageID int64) (*intake.Submission, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        RecordStore
	Intake       Intake
	ServiceName  string
	MaxPageBytes int64
	// HealthChecks are checked by /health, keyed by dependency name
	HealthChecks map[string]HealthChecker
}

// JobPostingHandler handles job posting, company and enrichment requests
type JobPostingHandler struct {
	logger *slog.Logger
	store  RecordStore
	intake Intake
}

// NewJobPostingHandler creates a new JobPostingHandler instance
func NewJobPostingHandler(deps *Dependencies) *JobPostingHandler {
	return &JobPostingHandler{
		logger: deps.Logger,
		store:  deps.Store,
		intake: deps.Intake,
	}
}

// JobPageHandler handles captured page requests from the browser extension
type JobPageHandler struct {
	logger       *slog.Logger
	store        RecordStore
	intake       Intake
	maxPageBytes int64
}

// NewJobPageHandler creates a new JobPageHandler instance
func NewJobPageHandler(deps *Dependencies) *JobPageHandler {
	return &JobPageHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		intake:       deps.Intake,
		maxPageBytes: deps.MaxPageBytes,
	}
}

// Package intake records new job postings and hands them to the enrichment
// queue. The write and the dispatch succeed or fail independently.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cuongbtq/job-hoarder/internal/dispatch"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/pageextract"
)

// Store is the slice of the record store intake needs.
type Store interface {
	GetOrCreateCompany(ctx context.Context, name string, industry *string) (*domain.Company, bool, error)
	CreateJobPosting(ctx context.Context, companyID int64, title, description string, url *string) (*domain.JobPosting, error)
	GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error)
	GetCapturedPage(ctx context.Context, id int64) (*domain.CapturedPage, error)
}

type SubmitRequest struct {
	CompanyName string
	Title       string
	Description string
	URL         *string
	Industry    *string
}

// Validate requires company name, title and description.
func (r SubmitRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.CompanyName) == "" {
		missing = append(missing, "company_name")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// DispatchResult reports whether the enrichment request reached the queue.
type DispatchResult struct {
	Queued bool
	Err    error
}

// Submission pairs the stored posting with the outcome of its dispatch.
type Submission struct {
	JobPosting *domain.JobPosting
	Company    *domain.Company
	Dispatch   DispatchResult
}

type Coordinator struct {
	store    Store
	enqueuer dispatch.Enqueuer
	// companies collapses concurrent get-or-create calls for one name
	companies singleflight.Group
	logger    *slog.Logger
}

func NewCoordinator(store Store, enqueuer dispatch.Enqueuer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Submit stores a job posting under its company and requests enrichment.
// It returns an error only when the posting could not be stored; a failed
// dispatch is reported in Submission.Dispatch.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	company, err := c.resolveCompany(ctx, strings.TrimSpace(req.CompanyName), req.Industry)
	if err != nil {
		return nil, fmt.Errorf("resolve company: %w", err)
	}

	posting, err := c.store.CreateJobPosting(ctx, company.ID, strings.TrimSpace(req.Title), req.Description, req.URL)
	if err != nil {
		return nil, fmt.Errorf("create job posting: %w", err)
	}
	if posting.CompanyName == "" {
		posting.CompanyName = company.Name
	}

	c.logger.Info("Job posting created",
		slog.Int64("job_posting_id", posting.ID),
		slog.Int64("company_id", company.ID),
		slog.String("company", company.Name),
	)

	return &Submission{
		JobPosting: posting,
		Company:    company,
		Dispatch:   c.dispatch(ctx, posting.ID),
	}, nil
}

// resolveCompany shares one lookup among concurrent callers. The lookup
// outlives any single caller's cancellation; each caller stops waiting on
// its own context.
func (c *Coordinator) resolveCompany(ctx context.Context, name string, industry *string) (*domain.Company, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.companies.DoChan(strings.ToLower(name), func() (any, error) {
		company, created, err := c.store.GetOrCreateCompany(shared, name, industry)
		if err != nil {
			return nil, err
		}
		if created {
			c.logger.Info("Company created",
				slog.Int64("company_id", company.ID),
				slog.String("company", company.Name),
			)
		}
		return company, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Company), nil
	}
}

func (c *Coordinator) dispatch(ctx context.Context, jobPostingID int64) DispatchResult {
	if err := c.enqueuer.Enqueue(ctx, jobPostingID); err != nil {
		c.logger.Warn("Failed to queue job posting for enrichment",
			slog.Int64("job_posting_id", jobPostingID),
			slog.Any("error", err),
		)
		return DispatchResult{Err: err}
	}
	c.logger.Debug("Job posting queued for enrichment", slog.Int64("job_posting_id", jobPostingID))
	return DispatchResult{Queued: true}
}

// Redispatch queues an existing job posting for enrichment again.
func (c *Coordinator) Redispatch(ctx context.Context, jobPostingID int64) (DispatchResult, error) {
	if _, err := c.store.GetJobPosting(ctx, jobPostingID); err != nil {
		return DispatchResult{}, err
	}
	return c.dispatch(ctx, jobPostingID), nil
}

// PromoteCapturedPage extracts intake fields from a captured page and
// submits them. The page url becomes the posting url.
func (c *Coordinator) PromoteCapturedPage(ctx context.Context, pageID int64) (*Submission, error) {
	page, err := c.store.GetCapturedPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	fields, err := pageextract.Extract(page.PageHTML)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidInput, err)
	}

	url := page.URL
	return c.Submit(ctx, SubmitRequest{
		CompanyName: fields.CompanyName,
		Title:       fields.Title,
		Description: fields.Description,
		URL:         &url,
		Industry:    fields.Industry,
	})
}

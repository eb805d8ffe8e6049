package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

type jobPostingRow struct {
	ID          int64          `db:"id"`
	CompanyID   int64          `db:"company_id"`
	CompanyName string         `db:"company_name"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	URL         sql.NullString `db:"url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r jobPostingRow) toDomain() *domain.JobPosting {
	return &domain.JobPosting{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		CompanyName: r.CompanyName,
		Title:       r.Title,
		Description: r.Description,
		URL:         nullString(r.URL),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// JobPostingFilter selects a page of postings, newest first.
type JobPostingFilter struct {
	CompanyID int64
	PageSize  int
	Cursor    *JobPostingCursor
}

// JobPostingCursor is the keyset position of the last row of a page.
type JobPostingCursor struct {
	CreatedAt time.Time
	ID        int64
}

// JobPostingPage is one page of postings plus the cursor of the next page.
type JobPostingPage struct {
	Postings []domain.JobPosting
	Next     *JobPostingCursor
}

var jobPostingSelect = []string{
	"j.id", "j.company_id", "c.name AS company_name", "j.title",
	"j.description", "j.url", "j.created_at", "j.updated_at",
}

// CreateJobPosting inserts a posting for an existing company. A missing
// company yields ErrNotFound.
func (s *Storage) CreateJobPosting(ctx context.Context, companyID int64, title, description string, url *string) (*domain.JobPosting, error) {
	query := `
		WITH inserted AS (
			INSERT INTO job_post (company_id, title, description, url)
			VALUES ($1, $2, $3, $4)
			RETURNING id, company_id, title, description, url, created_at, updated_at
		)
		SELECT i.id, i.company_id, c.name AS company_name, i.title,
		       i.description, i.url, i.created_at, i.updated_at
		FROM inserted i
		JOIN company c ON c.id = i.company_id
	`

	var row jobPostingRow
	if err := s.db.GetContext(ctx, &row, query, companyID, strings.TrimSpace(title), description, url); err != nil {
		return nil, mapError("create job posting", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error) {
	query, args, err := s.sb.Select(jobPostingSelect...).
		From("job_post j").
		Join("company c ON c.id = j.company_id").
		Where(sq.Eq{"j.id": id}).
		ToSql()
	if err != nil {
		return nil, mapError("build job posting query", err)
	}

	var row jobPostingRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, mapError("get job posting", err)
	}
	return row.toDomain(), nil
}

// ListJobPostings pages through postings ordered by (created_at, id) DESC.
func (s *Storage) ListJobPostings(ctx context.Context, filter JobPostingFilter) (*JobPostingPage, error) {
	pageSize := clampPageSize(filter.PageSize)

	qb := s.sb.Select(jobPostingSelect...).
		From("job_post j").
		Join("company c ON c.id = j.company_id")

	if filter.CompanyID > 0 {
		qb = qb.Where(sq.Eq{"j.company_id": filter.CompanyID})
	}
	if filter.Cursor != nil {
		qb = qb.Where(sq.Expr("(j.created_at, j.id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID))
	}

	// One extra row tells us whether another page exists.
	query, args, err := qb.OrderBy("j.created_at DESC", "j.id DESC").
		Limit(uint64(pageSize + 1)).
		ToSql()
	if err != nil {
		return nil, mapError("build job posting list", err)
	}

	var rows []jobPostingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("list job postings", err)
	}

	page := &JobPostingPage{Postings: make([]domain.JobPosting, 0, min(len(rows), pageSize))}
	for i, r := range rows {
		if i == pageSize {
			last := rows[pageSize-1]
			page.Next = &JobPostingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
			break
		}
		page.Postings = append(page.Postings, *r.toDomain())
	}
	return page, nil
}

// ListJobPostingsByCompany returns every posting for a company, newest first.
func (s *Storage) ListJobPostingsByCompany(ctx context.Context, companyID int64) ([]domain.JobPosting, error) {
	query, args, err := s.sb.Select(jobPostingSelect...).
		From("job_post j").
		Join("company c ON c.id = j.company_id").
		Where(sq.Eq{"j.company_id": companyID}).
		OrderBy("j.created_at DESC", "j.id DESC").
		ToSql()
	if err != nil {
		return nil, mapError("build job posting list", err)
	}

	var rows []jobPostingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("list job postings by company", err)
	}

	postings := make([]domain.JobPosting, 0, len(rows))
	for _, r := range rows {
		postings = append(postings, *r.toDomain())
	}
	return postings, nil
}

// UpdateJobPosting applies the non-nil fields of patch. An existing
// enrichment result is left as it was.
func (s *Storage) UpdateJobPosting(ctx context.Context, id int64, patch domain.JobPostingPatch) (*domain.JobPosting, error) {
	ub := s.sb.Update("job_post").Where(sq.Eq{"id": id})
	changed := false
	if patch.Title != nil {
		ub = ub.Set("title", strings.TrimSpace(*patch.Title))
		changed = true
	}
	if patch.Description != nil {
		ub = ub.Set("description", *patch.Description)
		changed = true
	}
	if patch.URL != nil {
		ub = ub.Set("url", *patch.URL)
		changed = true
	}
	if !changed {
		return s.GetJobPosting(ctx, id)
	}

	query, args, err := ub.Set("updated_at", sq.Expr("NOW()")).ToSql()
	if err != nil {
		return nil, mapError("build job posting update", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("update job posting", err)
	}
	if err := checkAffected("update job posting", res); err != nil {
		return nil, err
	}
	return s.GetJobPosting(ctx, id)
}

// DeleteJobPosting also removes its enrichment result.
func (s *Storage) DeleteJobPosting(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_post WHERE id = $1`, id)
	if err != nil {
		return mapError("delete job posting", err)
	}
	return checkAffected("delete job posting", res)
}

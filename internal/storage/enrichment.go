package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const enrichmentColumns = `id, job_post_id, summary, technical_skills, seniority_level,
	estimated_salary_min, estimated_salary_max, created_at, updated_at`

type enrichmentRow struct {
	ID                 int64          `db:"id"`
	JobPostingID       int64          `db:"job_post_id"`
	Summary            string         `db:"summary"`
	TechnicalSkills    pq.StringArray `db:"technical_skills"`
	SeniorityLevel     string         `db:"seniority_level"`
	EstimatedSalaryMin sql.NullInt64  `db:"estimated_salary_min"`
	EstimatedSalaryMax sql.NullInt64  `db:"estimated_salary_max"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r enrichmentRow) toDomain() *domain.EnrichmentResult {
	skills := []string(r.TechnicalSkills)
	if skills == nil {
		skills = []string{}
	}
	return &domain.EnrichmentResult{
		ID:                 r.ID,
		JobPostingID:       r.JobPostingID,
		Summary:            r.Summary,
		TechnicalSkills:    skills,
		SeniorityLevel:     r.SeniorityLevel,
		EstimatedSalaryMin: nullInt64(r.EstimatedSalaryMin),
		EstimatedSalaryMax: nullInt64(r.EstimatedSalaryMax),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// skillsArray keeps an empty skill list as '{}' rather than NULL.
func skillsArray(skills []string) pq.StringArray {
	if skills == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(skills)
}

// CreateEnrichmentResult inserts result for its job posting. A second
// result for the same posting yields ErrAlreadyExists, a missing posting
// ErrNotFound.
func (s *Storage) CreateEnrichmentResult(ctx context.Context, result *domain.EnrichmentResult) (*domain.EnrichmentResult, error) {
	query := `
		INSERT INTO summarized_job (
			job_post_id, summary, technical_skills, seniority_level,
			estimated_salary_min, estimated_salary_max
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + enrichmentColumns

	var row enrichmentRow
	err := s.db.GetContext(ctx, &row, query,
		result.JobPostingID,
		result.Summary,
		skillsArray(result.TechnicalSkills),
		result.SeniorityLevel,
		result.EstimatedSalaryMin,
		result.EstimatedSalaryMax,
	)
	if err != nil {
		return nil, mapError("create enrichment result", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) GetEnrichmentResult(ctx context.Context, id int64) (*domain.EnrichmentResult, error) {
	query := `SELECT ` + enrichmentColumns + ` FROM summarized_job WHERE id = $1`

	var row enrichmentRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError("get enrichment result", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) GetEnrichmentByJobPostingID(ctx context.Context, jobPostingID int64) (*domain.EnrichmentResult, error) {
	query := `SELECT ` + enrichmentColumns + ` FROM summarized_job WHERE job_post_id = $1`

	var row enrichmentRow
	if err := s.db.GetContext(ctx, &row, query, jobPostingID); err != nil {
		return nil, mapError("get enrichment by job posting", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) ListEnrichmentResults(ctx context.Context) ([]domain.EnrichmentResult, error) {
	query := `SELECT ` + enrichmentColumns + ` FROM summarized_job ORDER BY id`

	var rows []enrichmentRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError("list enrichment results", err)
	}

	results := make([]domain.EnrichmentResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, *r.toDomain())
	}
	return results, nil
}

func (s *Storage) UpdateEnrichmentResult(ctx context.Context, id int64, patch domain.EnrichmentResultPatch) (*domain.EnrichmentResult, error) {
	ub := s.sb.Update("summarized_job").Where(sq.Eq{"id": id})
	changed := false
	if patch.Summary != nil {
		ub = ub.Set("summary", *patch.Summary)
		changed = true
	}
	if patch.TechnicalSkills != nil {
		ub = ub.Set("technical_skills", skillsArray(patch.TechnicalSkills))
		changed = true
	}
	if patch.SeniorityLevel != nil {
		ub = ub.Set("seniority_level", *patch.SeniorityLevel)
		changed = true
	}
	if patch.EstimatedSalaryMin != nil {
		ub = ub.Set("estimated_salary_min", *patch.EstimatedSalaryMin)
		changed = true
	}
	if patch.EstimatedSalaryMax != nil {
		ub = ub.Set("estimated_salary_max", *patch.EstimatedSalaryMax)
		changed = true
	}
	if !changed {
		return s.GetEnrichmentResult(ctx, id)
	}

	query, args, err := ub.Set("updated_at", sq.Expr("NOW()")).
		Suffix("RETURNING " + enrichmentColumns).
		ToSql()
	if err != nil {
		return nil, mapError("build enrichment update", err)
	}

	var row enrichmentRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, mapError("update enrichment result", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) DeleteEnrichmentResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summarized_job WHERE id = $1`, id)
	if err != nil {
		return mapError("delete enrichment result", err)
	}
	return checkAffected("delete enrichment result", res)
}

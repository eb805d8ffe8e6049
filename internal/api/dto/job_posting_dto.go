package dto

import (
	"time"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

type CreateJobPostingRequest struct {
	CompanyName string  `json:"company_name" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	URL         *string `json:"url"`
	Industry    *string `json:"industry"`
}

type UpdateJobPostingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

type ListJobPostingsRequest struct {
	CompanyID int64  `form:"company_id"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

type JobPostingDTO struct {
	ID          int64   `json:"id"`
	CompanyID   int64   `json:"company_id"`
	CompanyName string  `json:"company_name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         *string `json:"url,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// DispatchDTO reports whether enrichment was queued. Error is set only
// when it was not.
type DispatchDTO struct {
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}

type CreateJobPostingResponse struct {
	JobPosting JobPostingDTO `json:"job_posting"`
	Dispatch   DispatchDTO   `json:"dispatch"`
}

type ListJobPostingsResponse struct {
	JobPostings []JobPostingDTO `json:"job_postings"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

type EnrichmentDTO struct {
	ID                 int64    `json:"id"`
	JobPostingID       int64    `json:"job_posting_id"`
	Summary            string   `json:"summary"`
	TechnicalSkills    []string `json:"technical_skills"`
	SeniorityLevel     string   `json:"seniority_level"`
	EstimatedSalaryMin *int64   `json:"estimated_salary_min"`
	EstimatedSalaryMax *int64   `json:"estimated_salary_max"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

// UpdateEnrichmentRequest is an administrative correction of a stored
// enrichment result. Omitted fields are left as they are.
type UpdateEnrichmentRequest struct {
	Summary            *string  `json:"summary"`
	TechnicalSkills    []string `json:"technical_skills"`
	SeniorityLevel     *string  `json:"seniority_level"`
	EstimatedSalaryMin *int64   `json:"estimated_salary_min"`
	EstimatedSalaryMax *int64   `json:"estimated_salary_max"`
}

type ListEnrichmentsResponse struct {
	Total       int             `json:"total"`
	Enrichments []EnrichmentDTO `json:"enrichments"`
}

func NewJobPostingDTO(p *domain.JobPosting) JobPostingDTO {
	return JobPostingDTO{
		ID:          p.ID,
		CompanyID:   p.CompanyID,
		CompanyName: p.CompanyName,
		Title:       p.Title,
		Description: p.Description,
		URL:         p.URL,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func NewEnrichmentDTO(r *domain.EnrichmentResult) EnrichmentDTO {
	skills := r.TechnicalSkills
	if skills == nil {
		skills = []string{}
	}
	return EnrichmentDTO{
		ID:                 r.ID,
		JobPostingID:       r.JobPostingID,
		Summary:            r.Summary,
		TechnicalSkills:    skills,
		SeniorityLevel:     r.SeniorityLevel,
		EstimatedSalaryMin: r.EstimatedSalaryMin,
		EstimatedSalaryMax: r.EstimatedSalaryMax,
		CreatedAt:          formatTime(r.CreatedAt),
		UpdatedAt:          formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

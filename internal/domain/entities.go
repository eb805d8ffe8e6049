package domain

import "time"

// Company is resolved lazily by name the first time a posting references it.
type Company struct {
	ID        int64
	Name      string
	Industry  *string
	CreatedAt time.Time
}

// JobPosting always references an existing Company.
type JobPosting struct {
	ID          int64
	CompanyID   int64
	CompanyName string // populated on reads
	Title       string
	Description string
	URL         *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CapturedPage is a raw page snapshot posted by the browser extension.
type CapturedPage struct {
	ID        int64
	URL       string
	PageHTML  string
	CreatedAt time.Time
}

// EnrichmentResult is unique per JobPosting.
type EnrichmentResult struct {
	ID                 int64
	JobPostingID       int64
	Summary            string
	TechnicalSkills    []string
	SeniorityLevel     string
	EstimatedSalaryMin *int64
	EstimatedSalaryMax *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EnrichmentFields is what the response parser extracts from model output.
type EnrichmentFields struct {
	Summary            string
	TechnicalSkills    []string
	SeniorityLevel     string
	EstimatedSalaryMin *int64
	EstimatedSalaryMax *int64
}

// ToResult binds parsed fields to a job posting.
func (f EnrichmentFields) ToResult(jobPostingID int64) *EnrichmentResult {
	return &EnrichmentResult{
		JobPostingID:       jobPostingID,
		Summary:            f.Summary,
		TechnicalSkills:    f.TechnicalSkills,
		SeniorityLevel:     f.SeniorityLevel,
		EstimatedSalaryMin: f.EstimatedSalaryMin,
		EstimatedSalaryMax: f.EstimatedSalaryMax,
	}
}

// Patch types carry only the fields an update should touch.

type CompanyPatch struct {
	Name     *string
	Industry *string
}

type JobPostingPatch struct {
	Title       *string
	Description *string
	URL         *string
}

type CapturedPagePatch struct {
	URL      *string
	PageHTML *string
}

type EnrichmentResultPatch struct {
	Summary            *string
	TechnicalSkills    []string
	SeniorityLevel     *string
	EstimatedSalaryMin *int64
	EstimatedSalaryMax *int64
}

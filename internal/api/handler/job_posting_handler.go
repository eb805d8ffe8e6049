package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-hoarder/internal/api/dto"
	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/intake"
	"github.com/cuongbtq/job-hoarder/internal/storage"
)

func dispatchDTO(res intake.DispatchResult) dto.DispatchDTO {
	out := dto.DispatchDTO{Queued: res.Queued}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// CreateJobPosting handles POST /api/v1/job-postings
// The posting is created even when enrichment could not be queued; the
// response says which happened.
func (h *JobPostingHandler) CreateJobPosting(c *gin.Context) {
	var req dto.CreateJobPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}

	sub, err := h.intake.Submit(c.Request.Context(), intake.SubmitRequest{
		CompanyName: req.CompanyName,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Industry:    req.Industry,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to create job posting")
		return
	}

	c.JSON(http.StatusCreated, dto.CreateJobPostingResponse{
		JobPosting: dto.NewJobPostingDTO(sub.JobPosting),
		Dispatch:   dispatchDTO(sub.Dispatch),
	})
}

// GetJobPosting handles GET /api/v1/job-postings/:id
func (h *JobPostingHandler) GetJobPosting(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	posting, err := h.store.GetJobPosting(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get job posting")
		return
	}

	c.JSON(http.StatusOK, dto.NewJobPostingDTO(posting))
}

// ListJobPostings handles GET /api/v1/job-postings
// Keyset paginated, newest first, optionally filtered by company_id.
func (h *JobPostingHandler) ListJobPostings(c *gin.Context) {
	var req dto.ListJobPostingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "detail": err.Error()})
		return
	}

	cursor, err := DecodeJobPostingCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	page, err := h.store.ListJobPostings(c.Request.Context(), storage.JobPostingFilter{
		CompanyID: req.CompanyID,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list job postings")
		return
	}

	resp := dto.ListJobPostingsResponse{JobPostings: make([]dto.JobPostingDTO, 0, len(page.Postings))}
	for i := range page.Postings {
		resp.JobPostings = append(resp.JobPostings, dto.NewJobPostingDTO(&page.Postings[i]))
	}
	if page.Next != nil {
		resp.NextCursor = EncodeJobPostingCursor(page.Next)
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateJobPosting handles PATCH /api/v1/job-postings/:id
// An existing enrichment result is not recomputed.
func (h *JobPostingHandler) UpdateJobPosting(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateJobPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}

	if blank(req.Title) || blank(req.Description) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and description cannot be empty"})
		return
	}

	posting, err := h.store.UpdateJobPosting(c.Request.Context(), id, domain.JobPostingPatch{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update job posting")
		return
	}

	c.JSON(http.StatusOK, dto.NewJobPostingDTO(posting))
}

func blank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) == ""
}

// DeleteJobPosting handles DELETE /api/v1/job-postings/:id
func (h *JobPostingHandler) DeleteJobPosting(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteJobPosting(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete job posting")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetEnrichment handles GET /api/v1/job-postings/:id/enrichment
// 404 means the posting is not (yet) enriched.
func (h *JobPostingHandler) GetEnrichment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.store.GetEnrichmentByJobPostingID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job posting is not enriched"})
			return
		}
		respondError(c, h.logger, err, "Failed to get enrichment")
		return
	}

	c.JSON(http.StatusOK, dto.NewEnrichmentDTO(result))
}

// Enrich handles POST /api/v1/job-postings/:id/enrich
func (h *JobPostingHandler) Enrich(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.intake.Redispatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to queue enrichment")
		return
	}
	if !res.Queued {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "Failed to queue enrichment",
			"dispatch": dispatchDTO(res),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_posting_id": id,
		"dispatch":       dispatchDTO(res),
	})
}

// ListCompanies handles GET /api/v1/companies
func (h *JobPostingHandler) ListCompanies(c *gin.Context) {
	companies, err := h.store.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list companies")
		return
	}

	resp := dto.ListCompaniesResponse{
		Total:     len(companies),
		Companies: make([]dto.CompanyDTO, 0, len(companies)),
	}
	for i := range companies {
		resp.Companies = append(resp.Companies, dto.NewCompanyDTO(&companies[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetCompany handles GET /api/v1/companies/:id
func (h *JobPostingHandler) GetCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	company, err := h.store.GetCompany(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get company")
		return
	}

	c.JSON(http.StatusOK, dto.NewCompanyDTO(company))
}

// ListCompanyJobPostings handles GET /api/v1/companies/:id/job-postings
func (h *JobPostingHandler) ListCompanyJobPostings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if _, err := h.store.GetCompany(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to get company")
		return
	}

	postings, err := h.store.ListJobPostingsByCompany(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list job postings")
		return
	}

	resp := dto.ListJobPostingsResponse{JobPostings: make([]dto.JobPostingDTO, 0, len(postings))}
	for i := range postings {
		resp.JobPostings = append(resp.JobPostings, dto.NewJobPostingDTO(&postings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateCompany handles PATCH /api/v1/companies/:id
// Renaming onto another company's name (any casing) is a conflict.
func (h *JobPostingHandler) UpdateCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}
	if blank(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}

	company, err := h.store.UpdateCompany(c.Request.Context(), id, domain.CompanyPatch{
		Name:     req.Name,
		Industry: req.Industry,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update company")
		return
	}

	c.JSON(http.StatusOK, dto.NewCompanyDTO(company))
}

// DeleteCompany handles DELETE /api/v1/companies/:id
// A company with job postings cannot be deleted (409).
func (h *JobPostingHandler) DeleteCompany(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteCompany(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete company")
		return
	}

	c.Status(http.StatusNoContent)
}

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-hoarder/internal/api/dto"
	"github.com/cuongbtq/job-hoarder/internal/domain"
)

// ListEnrichments handles GET /api/v1/enrichments
func (h *JobPostingHandler) ListEnrichments(c *gin.Context) {
	results, err := h.store.ListEnrichmentResults(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list enrichments")
		return
	}

	resp := dto.ListEnrichmentsResponse{
		Total:       len(results),
		Enrichments: make([]dto.EnrichmentDTO, 0, len(results)),
	}
	for i := range results {
		resp.Enrichments = append(resp.Enrichments, dto.NewEnrichmentDTO(&results[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetEnrichmentByID handles GET /api/v1/enrichments/:id
func (h *JobPostingHandler) GetEnrichmentByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.store.GetEnrichmentResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get enrichment")
		return
	}

	c.JSON(http.StatusOK, dto.NewEnrichmentDTO(result))
}

// UpdateEnrichment handles PATCH /api/v1/job-postings/:id/enrichment
// This is the only path that changes a stored result; the pipeline never
// overwrites one.
func (h *JobPostingHandler) UpdateEnrichment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateEnrichmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}
	if err := validateEnrichmentUpdate(req); err != nil {
		respondError(c, h.logger, err, "Invalid enrichment update")
		return
	}

	existing, ok := h.enrichmentFor(c, id)
	if !ok {
		return
	}

	result, err := h.store.UpdateEnrichmentResult(c.Request.Context(), existing.ID, domain.EnrichmentResultPatch{
		Summary:            req.Summary,
		TechnicalSkills:    req.TechnicalSkills,
		SeniorityLevel:     req.SeniorityLevel,
		EstimatedSalaryMin: req.EstimatedSalaryMin,
		EstimatedSalaryMax: req.EstimatedSalaryMax,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to update enrichment")
		return
	}

	c.JSON(http.StatusOK, dto.NewEnrichmentDTO(result))
}

// DeleteEnrichment handles DELETE /api/v1/job-postings/:id/enrichment
// The posting can be enriched again afterwards.
func (h *JobPostingHandler) DeleteEnrichment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	existing, ok := h.enrichmentFor(c, id)
	if !ok {
		return
	}

	if err := h.store.DeleteEnrichmentResult(c.Request.Context(), existing.ID); err != nil {
		respondError(c, h.logger, err, "Failed to delete enrichment")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobPostingHandler) enrichmentFor(c *gin.Context, jobPostingID int64) (*domain.EnrichmentResult, bool) {
	result, err := h.store.GetEnrichmentByJobPostingID(c.Request.Context(), jobPostingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job posting is not enriched"})
			return nil, false
		}
		respondError(c, h.logger, err, "Failed to get enrichment")
		return nil, false
	}
	return result, true
}

// validateEnrichmentUpdate checks what it can without the stored row. A
// one-sided salary change that crosses the stored bound is caught by the
// store.
func validateEnrichmentUpdate(req dto.UpdateEnrichmentRequest) error {
	switch {
	case blank(req.Summary):
		return fmt.Errorf("%w: summary cannot be empty", domain.ErrInvalidInput)
	case blank(req.SeniorityLevel):
		return fmt.Errorf("%w: seniority_level cannot be empty", domain.ErrInvalidInput)
	case negative(req.EstimatedSalaryMin), negative(req.EstimatedSalaryMax):
		return fmt.Errorf("%w: salaries cannot be negative", domain.ErrInvalidInput)
	case req.EstimatedSalaryMin != nil && req.EstimatedSalaryMax != nil &&
		*req.EstimatedSalaryMin > *req.EstimatedSalaryMax:
		return fmt.Errorf("%w: estimated_salary_min above estimated_salary_max", domain.ErrInvalidInput)
	}
	return nil
}

func negative(n *int64) bool {
	return n != nil && *n < 0
}

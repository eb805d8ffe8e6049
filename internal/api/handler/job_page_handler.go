package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-hoarder/internal/api/dto"
	"github.com/cuongbtq/job-hoarder/internal/domain"
)

// SavePage handles POST /api/v1/job-collection/page
func (h *JobPageHandler) SavePage(c *gin.Context) {
	if h.maxPageBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPageBytes)
	}

	var req dto.JobPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Page too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}

	page, err := h.store.CreateCapturedPage(c.Request.Context(), req.URL, req.PageHTML)
	if err != nil {
		respondError(c, h.logger, err, "Error saving job page")
		return
	}

	c.JSON(http.StatusOK, dto.JobPageResponse{
		PageID:  page.ID,
		URL:     page.URL,
		Message: "Job page saved successfully",
	})
}

// GetPage handles GET /api/v1/job-collection/page/:page_id
func (h *JobPageHandler) GetPage(c *gin.Context) {
	id, ok := parseID(c, "page_id")
	if !ok {
		return
	}

	page, err := h.store.GetCapturedPage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job page not found", "page_id": id})
			return
		}
		respondError(c, h.logger, err, "Error retrieving job page")
		return
	}

	c.JSON(http.StatusOK, dto.JobPageResponse{
		PageID:  page.ID,
		URL:     page.URL,
		Message: "Job page retrieved successfully",
	})
}

// FindPage handles GET /api/v1/job-collection/page?url=
// It returns the most recent capture of url.
func (h *JobPageHandler) FindPage(c *gin.Context) {
	var req dto.JobPageLookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	page, err := h.store.GetCapturedPageByURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job page not found", "url": req.URL})
			return
		}
		respondError(c, h.logger, err, "Error retrieving job page")
		return
	}

	c.JSON(http.StatusOK, dto.JobPageResponse{
		PageID:  page.ID,
		URL:     page.URL,
		Message: "Job page retrieved successfully",
	})
}

// UpdatePage handles PATCH /api/v1/job-collection/page/:page_id
func (h *JobPageHandler) UpdatePage(c *gin.Context) {
	id, ok := parseID(c, "page_id")
	if !ok {
		return
	}
	if h.maxPageBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPageBytes)
	}

	var req dto.UpdateJobPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Page too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "detail": err.Error()})
		return
	}
	if blank(req.URL) || blank(req.PageHTML) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and page_html cannot be empty"})
		return
	}

	page, err := h.store.UpdateCapturedPage(c.Request.Context(), id, domain.CapturedPagePatch{
		URL:      req.URL,
		PageHTML: req.PageHTML,
	})
	if err != nil {
		respondError(c, h.logger, err, "Error updating job page")
		return
	}

	c.JSON(http.StatusOK, dto.JobPageResponse{
		PageID:  page.ID,
		URL:     page.URL,
		Message: "Job page updated successfully",
	})
}

// ListPages handles GET /api/v1/job-collection/pages
func (h *JobPageHandler) ListPages(c *gin.Context) {
	pages, err := h.store.ListCapturedPages(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Error retrieving job pages")
		return
	}

	resp := dto.JobPageListResponse{
		Total: len(pages),
		Pages: make([]dto.JobPageItem, 0, len(pages)),
	}
	for _, p := range pages {
		resp.Pages = append(resp.Pages, dto.JobPageItem{PageID: p.ID, URL: p.URL})
	}
	c.JSON(http.StatusOK, resp)
}

// DeletePage handles DELETE /api/v1/job-collection/page/:page_id
func (h *JobPageHandler) DeletePage(c *gin.Context) {
	id, ok := parseID(c, "page_id")
	if !ok {
		return
	}

	if err := h.store.DeleteCapturedPage(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Error deleting job page")
		return
	}
	c.Status(http.StatusNoContent)
}

// PromotePage handles POST /api/v1/job-collection/page/:page_id/promote
// The page is turned into a job posting and queued for enrichment.
func (h *JobPageHandler) PromotePage(c *gin.Context) {
	id, ok := parseID(c, "page_id")
	if !ok {
		return
	}

	sub, err := h.intake.PromoteCapturedPage(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to promote job page")
		return
	}

	c.JSON(http.StatusCreated, dto.CreateJobPostingResponse{
		JobPosting: dto.NewJobPostingDTO(sub.JobPosting),
		Dispatch:   dispatchDTO(sub.Dispatch),
	})
}

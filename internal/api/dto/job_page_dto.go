package dto

type JobPageRequest struct {
	URL      string `json:"url" binding:"required"`
	PageHTML string `json:"page_html" binding:"required"`
}

// UpdateJobPageRequest replaces the URL and/or HTML of a captured page.
type UpdateJobPageRequest struct {
	URL      *string `json:"url"`
	PageHTML *string `json:"page_html"`
}

type JobPageLookupRequest struct {
	URL string `form:"url" binding:"required"`
}

type JobPageResponse struct {
	PageID  int64  `json:"page_id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

type JobPageItem struct {
	PageID int64  `json:"page_id"`
	URL    string `json:"url"`
}

type JobPageListResponse struct {
	Total int           `json:"total"`
	Pages []JobPageItem `json:"pages"`
}

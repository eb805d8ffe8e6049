package dto

import "github.com/cuongbtq/job-hoarder/internal/domain"

type CompanyDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Industry  *string `json:"industry,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type UpdateCompanyRequest struct {
	Name     *string `json:"name"`
	Industry *string `json:"industry"`
}

type ListCompaniesResponse struct {
	Total     int          `json:"total"`
	Companies []CompanyDTO `json:"companies"`
}

func NewCompanyDTO(c *domain.Company) CompanyDTO {
	return CompanyDTO{
		ID:        c.ID,
		Name:      c.Name,
		Industry:  c.Industry,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

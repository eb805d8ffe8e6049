package enrichment

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const unknownCompany = "Unknown"

// SystemPrompt asks for the JSON object ParseResponse expects.
const SystemPrompt = `You are an expert job analyst. Analyze the following job posting and provide:

1. A concise summary (2-3 sentences)
2. A list of technical skills required (as a JSON array)
3. The seniority level (one of: "Entry", "Junior", "Mid", "Senior", "Staff", "Principal", "Lead")
4. An estimated salary range in USD (min and max as integers)

Return your response as a JSON object with these exact keys:
{
    "summary": "string",
    "technical_skills": ["skill1", "skill2", ...],
    "seniority_level": "string",
    "estimated_salary_min": integer or null,
    "estimated_salary_max": integer or null
}`

// UserPrompt renders a posting's title, full description and company.
func UserPrompt(posting *domain.JobPosting) string {
	company := strings.TrimSpace(posting.CompanyName)
	if company == "" {
		company = unknownCompany
	}
	return fmt.Sprintf("Job Title: %s\n\nJob Description:\n%s\n\nCompany: %s\n",
		posting.Title, posting.Description, company)
}

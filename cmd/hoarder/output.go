package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/enrichment"
	"github.com/cuongbtq/job-hoarder/internal/intake"
)

func printSubmission(w io.Writer, sub *intake.Submission) {
	p := sub.JobPosting
	fmt.Fprintf(w, "Job posting %d created\n", p.ID)
	fmt.Fprintf(w, "  %-12s %s (id %d)\n", "Company:", p.CompanyName, p.CompanyID)
	fmt.Fprintf(w, "  %-12s %s\n", "Title:", p.Title)
	if p.URL != nil {
		fmt.Fprintf(w, "  %-12s %s\n", "URL:", *p.URL)
	}
	if sub.Dispatch.Queued {
		fmt.Fprintf(w, "  %-12s queued\n", "Enrichment:")
		return
	}
	fmt.Fprintf(w, "  %-12s not queued (%v)\n", "Enrichment:", sub.Dispatch.Err)
}

func printResult(w io.Writer, res enrichment.Result) {
	fmt.Fprintf(w, "Job posting %d: %s\n", res.JobPostingID, res.Status)
	if res.Detail != "" {
		fmt.Fprintf(w, "  %s\n", res.Detail)
	}
	if res.Kind != domain.KindNone {
		fmt.Fprintf(w, "  %-12s %s (retryable: %t)\n", "Error kind:", res.Kind, res.Retryable())
	}
	if res.Enrichment != nil {
		printEnrichment(w, res.Enrichment)
	}
}

func printEnrichment(w io.Writer, r *domain.EnrichmentResult) {
	fmt.Fprintln(w, strings.Repeat("─", 47))
	fmt.Fprintf(w, "%-12s %s\n", "Seniority:", r.SeniorityLevel)
	fmt.Fprintf(w, "%-12s %s\n", "Skills:", strings.Join(r.TechnicalSkills, ", "))
	fmt.Fprintf(w, "%-12s %s\n", "Salary:", salaryRange(r.EstimatedSalaryMin, r.EstimatedSalaryMax))
	fmt.Fprintf(w, "%-12s %s\n", "Summary:", r.Summary)
}

func salaryRange(lo, hi *int64) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("$%d - $%d", *lo, *hi)
	case lo != nil:
		return fmt.Sprintf("from $%d", *lo)
	case hi != nil:
		return fmt.Sprintf("up to $%d", *hi)
	default:
		return "unknown"
	}
}

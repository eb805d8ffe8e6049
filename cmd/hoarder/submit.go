package main

import (
	"github.com/spf13/cobra"

	"github.com/cuongbtq/job-hoarder/internal/intake"
)

var submitOpts struct {
	company     string
	title       string
	description string
	url         string
	industry    string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create a job posting and queue it for enrichment",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitOpts.company, "company", "", "company name (required)")
	f.StringVar(&submitOpts.title, "title", "", "job title (required)")
	f.StringVar(&submitOpts.description, "description", "", "job description (required)")
	f.StringVar(&submitOpts.url, "url", "", "source URL")
	f.StringVar(&submitOpts.industry, "industry", "", "company industry, used when the company is new")
	_ = submitCmd.MarkFlagRequired("company")
	_ = submitCmd.MarkFlagRequired("title")
	_ = submitCmd.MarkFlagRequired("description")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	sub, err := e.coordinator().Submit(cmd.Context(), intake.SubmitRequest{
		CompanyName: submitOpts.company,
		Title:       submitOpts.title,
		Description: submitOpts.description,
		URL:         optional(submitOpts.url),
		Industry:    optional(submitOpts.industry),
	})
	if err != nil {
		return err
	}

	printSubmission(cmd.OutOrStdout(), sub)
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

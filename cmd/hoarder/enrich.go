package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/job-hoarder/internal/enrichment"
	"github.com/cuongbtq/job-hoarder/internal/llm"
)

var enrichQueue bool

var enrichCmd = &cobra.Command{
	Use:   "enrich <job-posting-id>",
	Short: "Enrich a job posting now, or queue it with --queue",
	Long: "Runs one enrichment attempt in-process and prints the result. " +
		"With --queue the posting is handed to the worker service instead.",
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichQueue, "queue", false, "publish to the enrichment queue instead of running locally")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	e, err := setup(enrichQueue)
	if err != nil {
		return err
	}
	defer e.close()

	out := cmd.OutOrStdout()
	if enrichQueue {
		res, err := e.coordinator().Redispatch(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !res.Queued {
			return fmt.Errorf("enrichment not queued: %w", res.Err)
		}
		fmt.Fprintf(out, "Job posting %d queued for enrichment\n", id)
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.Worker.HardTimeLimit)
	defer cancel()

	resolver := llm.NewResolver(e.cfg.LLM, nil, e.logger.Logger)
	res := enrichment.NewProcessor(e.store, resolver, e.logger.Logger).Process(ctx, id)
	printResult(out, res)

	if res.Status == enrichment.StatusError {
		return fmt.Errorf("enrichment failed: %w", res.Err)
	}
	return nil
}

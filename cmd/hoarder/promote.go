package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var promoteCmd = &cobra.Command{
	Use:   "promote <page-id>",
	Short: "Turn a captured page into a job posting",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromote,
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}

func runPromote(cmd *cobra.Command, args []string) error {
	pageID, err := parseID(args[0])
	if err != nil {
		return err
	}

	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.close()

	sub, err := e.coordinator().PromoteCapturedPage(cmd.Context(), pageID)
	if err != nil {
		return err
	}
	printSubmission(cmd.OutOrStdout(), sub)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

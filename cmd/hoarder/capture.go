package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var capturePromote bool

var captureCmd = &cobra.Command{
	Use:   "capture <url> <html-file>",
	Short: "Store a captured job page",
	Long:  "Stores the HTML in <html-file> (or stdin when it is \"-\") as a captured page for <url>.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().BoolVar(&capturePromote, "promote", false, "also turn the page into a job posting")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	html, err := readHTML(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}

	e, err := setup(capturePromote)
	if err != nil {
		return err
	}
	defer e.close()

	page, err := e.store.CreateCapturedPage(cmd.Context(), args[0], html)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Captured page %d saved (%s)\n", page.ID, page.URL)

	if !capturePromote {
		return nil
	}
	sub, err := e.coordinator().PromoteCapturedPage(cmd.Context(), page.ID)
	if err != nil {
		return err
	}
	printSubmission(out, sub)
	return nil
}

func readHTML(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

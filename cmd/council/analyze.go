package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/council/internal/analytics"
	"github.com/lorenzotomasdiez/council/internal/output"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <transcript.json|debate dir>",
		Short: "Per-agent statistics and voting patterns for a finished debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if fi, err := os.Stat(path); err == nil && fi.IsDir() {
				path = filepath.Join(path, output.TranscriptFile)
			}
			state, err := store.LoadFile(path)
			if err != nil {
				return err
			}
			report := analytics.Analyze(state)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			output.Analysis(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

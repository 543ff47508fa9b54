package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/example/manifest-audit/internal/events"
	"github.com/example/manifest-audit/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate aggregate stats from an audit summary file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			summary, err := report.ReadSummary(inputPath)
			if err != nil {
				return err
			}

			stats := summary.Aggregate()
			emitter := events.NewEmitter(cmd.OutOrStdout())
			if err := emitter.Emit(events.Event{Type: "report", Message: "Report generated", Fields: map[string]interface{}{
				"input":     inputPath,
				"manifest":  stats.Path,
				"status":    stats.Status,
				"findings":  stats.Findings,
				"byKind":    stats.ByKind,
				"byIssue":   stats.ByIssue,
				"riskScore": stats.RiskScore,
				"riskTier":  stats.RiskTier,
			}}); err != nil {
				return err
			}

			if summaryPath != "" {
				if err := writeReportStats(summaryPath, stats); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stats written to %s\n", summaryPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a summary JSON written by --summary-file")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store aggregate stats JSON")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

func writeReportStats(path string, stats report.Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/example/manifest-audit/internal/config"
	"github.com/example/manifest-audit/internal/report"
	"github.com/spf13/cobra"
)

// auditFlagSet tracks audit flags before they are converted into config overrides.
type auditFlagSet struct {
	mediumFloor    int
	highFloor      int
	weights        []string
	replaceWeights bool
	strict         bool
	format         string
	rules          string
	summaryFile    string
	noColor        bool
}

// bindConfigFlags registers the flags that feed config.Overrides.
func bindConfigFlags(cmd *cobra.Command, flags *auditFlagSet) {
	cmd.Flags().IntVar(&flags.mediumFloor, "medium-floor", 0, "Lowest score rated MEDIUM (overrides config)")
	cmd.Flags().IntVar(&flags.highFloor, "high-floor", 0, "Lowest score rated HIGH (overrides config)")
	cmd.Flags().StringArrayVar(&flags.weights, "weight", nil, "Permission weight as permission=weight (repeatable)")
	cmd.Flags().BoolVar(&flags.replaceWeights, "replace-weights", false, "Use only --weight values instead of merging them over the configured table")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Require android:exported to be literally \"true\" or \"false\"")
	cmd.Flags().StringVar(&flags.format, "format", "", fmt.Sprintf("Report format: %s", strings.Join(report.Formats(), ", ")))
	cmd.Flags().StringVar(&flags.rules, "rules", "", "Comma-separated rules to run (default implicit-export)")
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
}

func bindAuditFlags(cmd *cobra.Command, flags *auditFlagSet) {
	bindConfigFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable terminal colors in the text report")
}

func (f auditFlagSet) toOverrides(cmd *cobra.Command) (config.Overrides, error) {
	ov := config.Overrides{}

	if cmd.Flags().Changed("medium-floor") {
		ov.MediumFloor = f.mediumFloor
		ov.MediumFloorSet = true
	}

	if cmd.Flags().Changed("high-floor") {
		ov.HighFloor = f.highFloor
		ov.HighFloorSet = true
	}

	if cmd.Flags().Changed("weight") {
		weights, err := config.ParseWeights(f.weights)
		if err != nil {
			return ov, &config.ConfigError{Source: "--weight", Err: err}
		}
		ov.Weights = weights
	}

	if cmd.Flags().Changed("replace-weights") {
		ov.ReplaceWeights = f.replaceWeights
	}

	if cmd.Flags().Changed("strict") {
		ov.Strict = &f.strict
	}

	if cmd.Flags().Changed("format") {
		ov.Format = f.format
	}

	if cmd.Flags().Changed("rules") {
		ov.Rules = config.ParseRules(f.rules)
	}

	if cmd.Flags().Changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	return ov, nil
}

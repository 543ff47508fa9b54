package cli

import (
	"github.com/example/manifest-audit/internal/audit"
	"github.com/example/manifest-audit/internal/config"
	"github.com/example/manifest-audit/internal/detector"
	"github.com/example/manifest-audit/internal/logging"
	"github.com/example/manifest-audit/internal/report"
	"github.com/example/manifest-audit/internal/risk"
	"github.com/spf13/cobra"
)

func runAudit(cmd *cobra.Command, loader *config.Loader, opts *rootOptions, flags *auditFlagSet, path string) error {
	logger := logging.New(cmd.ErrOrStderr(), opts.Debug)
	defer func() { _ = logger.Sync() }()

	overrides, err := flags.toOverrides(cmd)
	if err != nil {
		return err
	}

	cfg, err := loader.Load(overrides)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return &config.ConfigError{Source: "format", Err: err}
	}

	rules, err := detector.DefaultRegistry.BuildRules(cfg.Rules, detector.Options{Strict: cfg.Strict})
	if err != nil {
		return &config.ConfigError{Source: "rules", Err: err}
	}

	logger.Debugw("configuration loaded",
		"weights", len(cfg.Weights),
		"mediumFloor", cfg.MediumFloor,
		"highFloor", cfg.HighFloor,
		"strict", cfg.Strict,
		"rules", cfg.Rules,
	)

	engine := audit.NewEngine(risk.NewScorer(cfg.Weights, cfg.Thresholds()), rules, logger)
	res, err := engine.Run(path)
	if err != nil {
		return err
	}

	styled := !flags.noColor && format == report.FormatText && isTerminal(cmd.OutOrStdout())
	if err := report.New(cmd.OutOrStdout(), format, styled).Write(res); err != nil {
		return err
	}

	if cfg.SummaryFile != "" {
		if err := report.WriteSummary(cfg.SummaryFile, res); err != nil {
			return err
		}
		logger.Debugw("summary written", "path", cfg.SummaryFile)
	}

	if code := report.ExitStatus(res); code != report.ExitPass {
		return &ExitError{Code: code}
	}
	return nil
}

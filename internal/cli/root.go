package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/manifest-audit/internal/config"
	"github.com/example/manifest-audit/internal/report"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X .../internal/cli.version=...".
var version = "dev"

// ExitError carries a process exit status out of a command. A nil Err means
// the command already reported everything it had to say.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute builds the root command tree, runs the CLI and returns the process exit status.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return exitCode(rootCmd.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return report.ExitPass
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return report.ExitFailure
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}
	flags := &auditFlagSet{}

	rootCmd := &cobra.Command{
		Use:   "manifest-audit <AndroidManifest.xml>",
		Short: "Audit a merged Android manifest for components exported without an explicit android:exported",
		Long: `manifest-audit scans a merged AndroidManifest.xml for activities, activity-aliases,
services and receivers that declare an intent-filter but no android:exported
attribute, and scores each finding by the permissions the app requests.

Exit status: 0 when no findings, 2 when findings exist, 1 on usage,
missing file, malformed manifest or invalid risk configuration.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, loader, rootOpts, flags, args[0])
		},
	}
	rootCmd.SetVersionTemplate("manifest-audit version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to risk.config.yml (optional unless set explicitly)")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.Debug, "debug", false, "Write stage-by-stage debug logs to stderr")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("config") {
			loader.ConfigPath = rootOpts.ConfigPath
			loader.Required = true
		}
	}

	bindAuditFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newInitCmd(loader),
		newConfigCmd(loader),
		newReportCmd(),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
	Debug      bool
}

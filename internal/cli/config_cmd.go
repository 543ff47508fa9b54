package cli

import (
	"github.com/example/manifest-audit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(loader *config.Loader) *cobra.Command {
	flags := &auditFlagSet{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the risk configuration and print the effective weights and thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	bindConfigFlags(cmd, flags)

	return cmd
}

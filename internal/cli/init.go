package cli

import (
	"fmt"
	"os"

	"github.com/example/manifest-audit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCmd(loader *config.Loader) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter risk configuration with the default weights and thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loader.ConfigPath
			if path == "" {
				path = config.DefaultConfigPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			}

			data, err := yaml.Marshal(config.DefaultRiskConfig())
			if err != nil {
				return err
			}

			if err := ensureParentDir(path); err != nil {
				return err
			}

			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Default risk configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Load a configuration file with defaults and NFPROBE_* environment overrides
applied, and report whether it is valid. Nothing is captured or sent.

Examples:
  nfprobe validate --config /etc/nfprobe/config.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, cmd, nil)
			if err != nil {
				return fmt.Errorf("INVALID: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "VALID: input=%s collector=%s active=%s inactive=%s cache=%d\n",
				cfg.Input.Type,
				cfg.Collector.Address,
				cfg.Flow.ActiveTimeout,
				cfg.Flow.InactiveTimeout,
				cfg.Flow.CacheSize,
			)
			return nil
		},
	}
}

package cmd

import (
	"github.com/spf13/cobra"

	"firestige.xyz/nfprobe/internal/config"
)

func newConfigCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration nfprobe would run with: defaults, the config file
and NFPROBE_* environment overrides merged and validated.

Examples:
  nfprobe config
  NFPROBE_FLOW_CACHE_SIZE=4096 nfprobe config --config config.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile, cmd, nil)
			if err != nil {
				return err
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	}
}

// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the probe version reported by --version.
const Version = "0.1.0"

// newRootCmd builds the command tree. The root command runs the probe.
func newRootCmd() *cobra.Command {
	var (
		configFile string
		flags      probeFlags
	)

	rootCmd := &cobra.Command{
		Use:   "nfprobe",
		Short: "nfprobe - NetFlow v5 flow exporter",
		Long: `nfprobe reads Ethernet frames from a capture file, stdin or a live interface,
aggregates IPv4 packets into flows and exports expired flows to a NetFlow v5
collector over UDP.

Examples:
  nfprobe -f trace.pcap -c 10.0.0.5            # export a capture file to 10.0.0.5:2055
  tcpdump -w - -i eth0 | nfprobe -c collector   # read pcap from stdin
  nfprobe -I eth0 -a 30 -i 5 -m 4096            # live capture with custom aging`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, cmd, &flags)
			if err != nil {
				return err
			}
			return runProbe(cmd.Context(), cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file path (defaults and NFPROBE_* env vars apply without one)")
	flags.register(rootCmd)

	rootCmd.AddCommand(newValidateCmd(&configFile))
	rootCmd.AddCommand(newConfigCmd(&configFile))
	return rootCmd
}

// Execute runs the command line. This is called by main.main().
func Execute() error {
	return newRootCmd().Execute()
}

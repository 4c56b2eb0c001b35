package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"firestige.xyz/nfprobe/internal/config"
)

// probeFlags holds the command line overrides of the root command.
type probeFlags struct {
	file      string
	iface     string
	collector string
	active    int
	inactive  int
	cacheSize int
	capture   string
	filter    string
	octets    string
	metrics   string
}

func (f *probeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "file", "f", "-", "capture file to read (pcap or pcapng), - for stdin")
	fs.StringVarP(&f.iface, "interface", "I", "", "capture live from this interface")
	fs.StringVarP(&f.collector, "collector", "c", "127.0.0.1:2055", "collector host[:port]")
	fs.IntVarP(&f.active, "active", "a", 60, "active timeout in seconds")
	fs.IntVarP(&f.inactive, "inactive", "i", 10, "inactive timeout in seconds")
	fs.IntVarP(&f.cacheSize, "cache", "m", 1024, "maximum number of live flows")
	fs.StringVar(&f.capture, "capture", "", "packet source: file, pcap or afpacket")
	fs.StringVar(&f.filter, "filter", "", "BPF filter expression")
	fs.StringVar(&f.octets, "octets", "", "octet accounting: frame or ip")
	fs.StringVar(&f.metrics, "metrics", "", "serve Prometheus metrics on this address")
}

// apply copies every flag the user set onto cfg. Flags left at their
// defaults do not override the file or the environment.
func (f *probeFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("file") {
		cfg.Input.File = f.file
		cfg.Input.Type = "file"
	}
	if fs.Changed("interface") {
		cfg.Input.Interface = f.iface
		if !fs.Changed("capture") {
			cfg.Input.Type = "pcap"
		}
	}
	if fs.Changed("capture") {
		cfg.Input.Type = f.capture
	}
	if fs.Changed("filter") {
		cfg.Input.BPFFilter = f.filter
	}
	if fs.Changed("collector") {
		cfg.Collector.Address = f.collector
	}
	if fs.Changed("active") {
		cfg.Flow.ActiveTimeout = time.Duration(f.active) * time.Second
	}
	if fs.Changed("inactive") {
		cfg.Flow.InactiveTimeout = time.Duration(f.inactive) * time.Second
	}
	if fs.Changed("cache") {
		cfg.Flow.CacheSize = f.cacheSize
	}
	if fs.Changed("octets") {
		cfg.Flow.Octets = f.octets
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = f.metrics
	}
}

// loadConfig loads the config file, applies command line overrides and
// validates the result.
func loadConfig(path string, cmd *cobra.Command, f *probeFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return cfg, nil
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

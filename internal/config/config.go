// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RootKey is the top-level YAML key; env vars use the NFPROBE_ prefix it
// maps to (e.g. NFPROBE_FLOW_CACHE_SIZE).
const RootKey = "nfprobe"

// DefaultCollectorPort is appended to a collector address without a port.
const DefaultCollectorPort = "2055"

// Config represents the probe configuration.
// Maps to the `nfprobe:` root key in YAML.
type Config struct {
	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Flow      FlowConfig      `mapstructure:"flow" yaml:"flow"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ─── Input ───

// InputConfig selects the packet source.
type InputConfig struct {
	Type         string `mapstructure:"type" yaml:"type"`             // file | pcap | afpacket
	File         string `mapstructure:"file" yaml:"file"`             // capture file, "-" = stdin
	Interface    string `mapstructure:"interface" yaml:"interface"`   // live capture interface
	SnapLen      int    `mapstructure:"snaplen" yaml:"snaplen"`
	Promiscuous  bool   `mapstructure:"promiscuous" yaml:"promiscuous"`
	BPFFilter    string `mapstructure:"bpf_filter" yaml:"bpf_filter"`
	TimeoutMs    int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
}

// ─── Collector ───

// CollectorConfig addresses the NetFlow collector.
type CollectorConfig struct {
	Address      string        `mapstructure:"address" yaml:"address"` // host[:port]
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	NATS         NATSConfig    `mapstructure:"nats" yaml:"nats"`
}

// NATSConfig mirrors every exported datagram to a NATS subject.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// ─── Flow Cache ───

// FlowConfig configures flow aging and the cache bound.
type FlowConfig struct {
	ActiveTimeout   time.Duration `mapstructure:"active_timeout" yaml:"active_timeout"`
	InactiveTimeout time.Duration `mapstructure:"inactive_timeout" yaml:"inactive_timeout"`
	CacheSize       int           `mapstructure:"cache_size" yaml:"cache_size"`
	Octets          string        `mapstructure:"octets" yaml:"octets"` // frame | ip
}

// ─── Export Header ───

// ExportConfig holds the engine fields of NetFlow v5 headers.
type ExportConfig struct {
	EngineType       int `mapstructure:"engine_type" yaml:"engine_type"`
	EngineID         int `mapstructure:"engine_id" yaml:"engine_id"`
	SamplingMode     int `mapstructure:"sampling_mode" yaml:"sampling_mode"`
	SamplingInterval int `mapstructure:"sampling_interval" yaml:"sampling_interval"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stderr.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `nfprobe: ...`.
type configRoot struct {
	NFProbe Config `mapstructure:"nfprobe" yaml:"nfprobe"`
}

// Load loads configuration from path, or from defaults and environment only
// when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `nfprobe.` key prefix maps to `NFPROBE_` in env vars via the key
	// replacer (e.g., key "nfprobe.log.level" → env "NFPROBE_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.NFProbe

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "nfprobe." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("nfprobe.input.type", "file")
	v.SetDefault("nfprobe.input.file", "-")
	v.SetDefault("nfprobe.input.interface", "")
	v.SetDefault("nfprobe.input.snaplen", 65535)
	v.SetDefault("nfprobe.input.promiscuous", true)
	v.SetDefault("nfprobe.input.bpf_filter", "")
	v.SetDefault("nfprobe.input.timeout_ms", 100)
	v.SetDefault("nfprobe.input.buffer_size_mb", 64)

	// Collector defaults
	v.SetDefault("nfprobe.collector.address", "127.0.0.1:2055")
	v.SetDefault("nfprobe.collector.write_timeout", "5s")
	v.SetDefault("nfprobe.collector.nats.enabled", false)
	v.SetDefault("nfprobe.collector.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nfprobe.collector.nats.subject", "nfprobe.netflow")

	// Flow cache defaults
	v.SetDefault("nfprobe.flow.active_timeout", "60s")
	v.SetDefault("nfprobe.flow.inactive_timeout", "10s")
	v.SetDefault("nfprobe.flow.cache_size", 1024)
	v.SetDefault("nfprobe.flow.octets", "frame")

	// Export header defaults
	v.SetDefault("nfprobe.export.engine_type", 0)
	v.SetDefault("nfprobe.export.engine_id", 0)
	v.SetDefault("nfprobe.export.sampling_mode", 0)
	v.SetDefault("nfprobe.export.sampling_interval", 0)

	// Metrics defaults
	v.SetDefault("nfprobe.metrics.enabled", false)
	v.SetDefault("nfprobe.metrics.listen", ":9091")
	v.SetDefault("nfprobe.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("nfprobe.log.level", "info")
	v.SetDefault("nfprobe.log.format", "text")
	v.SetDefault("nfprobe.log.outputs.file.enabled", false)
	v.SetDefault("nfprobe.log.outputs.file.path", "/var/log/nfprobe/nfprobe.log")
	v.SetDefault("nfprobe.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("nfprobe.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("nfprobe.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("nfprobe.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and normalises the
// collector address. It is safe to call more than once.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("log.outputs.file.path is required when log.outputs.file.enabled=true")
	}

	// ── Input validation ──
	switch cfg.Input.Type {
	case "file":
		if cfg.Input.File == "" {
			return fmt.Errorf("input.file is required when input.type=file")
		}
	case "pcap", "afpacket":
		if cfg.Input.Interface == "" {
			return fmt.Errorf("input.interface is required when input.type=%s", cfg.Input.Type)
		}
	default:
		return fmt.Errorf("unsupported input.type: %s (must be file/pcap/afpacket)", cfg.Input.Type)
	}
	if cfg.Input.SnapLen < 0 || cfg.Input.TimeoutMs < 0 || cfg.Input.BufferSizeMB < 0 {
		return fmt.Errorf("input.snaplen, input.timeout_ms and input.buffer_size_mb must not be negative")
	}

	// ── Collector address ──
	addr, err := normalizeCollector(cfg.Collector.Address)
	if err != nil {
		return err
	}
	cfg.Collector.Address = addr
	if cfg.Collector.NATS.Enabled && (cfg.Collector.NATS.URL == "" || cfg.Collector.NATS.Subject == "") {
		return fmt.Errorf("collector.nats.url and collector.nats.subject are required when collector.nats.enabled=true")
	}

	// ── Flow cache validation ──
	if cfg.Flow.ActiveTimeout < time.Second {
		return fmt.Errorf("flow.active_timeout must be at least 1s, got %s", cfg.Flow.ActiveTimeout)
	}
	if cfg.Flow.InactiveTimeout < time.Second {
		return fmt.Errorf("flow.inactive_timeout must be at least 1s, got %s", cfg.Flow.InactiveTimeout)
	}
	if cfg.Flow.CacheSize < 1 {
		return fmt.Errorf("flow.cache_size must be positive, got %d", cfg.Flow.CacheSize)
	}
	if cfg.Flow.Octets != "frame" && cfg.Flow.Octets != "ip" {
		return fmt.Errorf("invalid flow.octets: %s (must be frame/ip)", cfg.Flow.Octets)
	}

	// ── Export header validation ──
	if cfg.Export.EngineType < 0 || cfg.Export.EngineType > 0xFF {
		return fmt.Errorf("export.engine_type out of range: %d", cfg.Export.EngineType)
	}
	if cfg.Export.EngineID < 0 || cfg.Export.EngineID > 0xFF {
		return fmt.Errorf("export.engine_id out of range: %d", cfg.Export.EngineID)
	}
	if cfg.Export.SamplingMode < 0 || cfg.Export.SamplingMode > 3 {
		return fmt.Errorf("export.sampling_mode out of range: %d", cfg.Export.SamplingMode)
	}
	if cfg.Export.SamplingInterval < 0 || cfg.Export.SamplingInterval > 0x3FFF {
		return fmt.Errorf("export.sampling_interval out of range: %d", cfg.Export.SamplingInterval)
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true")
	}

	return nil
}

// normalizeCollector appends DefaultCollectorPort to an address without a
// port. Bare IPv6 literals are bracketed.
func normalizeCollector(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("collector.address is required")
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" {
			return "", fmt.Errorf("invalid collector.address %q: missing host", addr)
		}
		if port == "" {
			port = DefaultCollectorPort
		}
		return net.JoinHostPort(host, port), nil
	}

	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if strings.Contains(host, ":") {
		if _, err := netip.ParseAddr(host); err != nil {
			return "", fmt.Errorf("invalid collector.address %q", addr)
		}
	}
	return net.JoinHostPort(host, DefaultCollectorPort), nil
}

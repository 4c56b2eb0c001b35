package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Input.Type)
	assert.Equal(t, "-", cfg.Input.File)
	assert.Equal(t, "127.0.0.1:2055", cfg.Collector.Address)
	assert.Equal(t, 5*time.Second, cfg.Collector.WriteTimeout)
	assert.Equal(t, NATSConfig{URL: "nats://127.0.0.1:4222", Subject: "nfprobe.netflow"}, cfg.Collector.NATS)
	assert.Equal(t, 60*time.Second, cfg.Flow.ActiveTimeout)
	assert.Equal(t, 10*time.Second, cfg.Flow.InactiveTimeout)
	assert.Equal(t, 1024, cfg.Flow.CacheSize)
	assert.Equal(t, "frame", cfg.Flow.Octets)
	assert.Equal(t, ExportConfig{}, cfg.Export)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
nfprobe:
  input:
    type: pcap
    interface: eth0
    snaplen: 128
    bpf_filter: "udp or tcp"
  collector:
    address: "collector.example.com"
  flow:
    active_timeout: 30s
    inactive_timeout: 5s
    cache_size: 4096
    octets: ip
  export:
    engine_type: 1
    engine_id: 7
    sampling_interval: 100
  metrics:
    enabled: true
    listen: "127.0.0.1:9100"
  log:
    level: debug
    format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pcap", cfg.Input.Type)
	assert.Equal(t, "eth0", cfg.Input.Interface)
	assert.Equal(t, 128, cfg.Input.SnapLen)
	assert.Equal(t, "udp or tcp", cfg.Input.BPFFilter)
	assert.Equal(t, "collector.example.com:2055", cfg.Collector.Address)
	assert.Equal(t, 30*time.Second, cfg.Flow.ActiveTimeout)
	assert.Equal(t, 5*time.Second, cfg.Flow.InactiveTimeout)
	assert.Equal(t, 4096, cfg.Flow.CacheSize)
	assert.Equal(t, ExportConfig{EngineType: 1, EngineID: 7, SamplingInterval: 100}, cfg.Export)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NFPROBE_FLOW_CACHE_SIZE", "7")
	t.Setenv("NFPROBE_FLOW_ACTIVE_TIMEOUT", "2m")
	t.Setenv("NFPROBE_COLLECTOR_ADDRESS", "10.1.1.1")

	path := writeConfig(t, `
nfprobe:
  flow:
    cache_size: 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Flow.CacheSize)
	assert.Equal(t, 2*time.Minute, cfg.Flow.ActiveTimeout)
	assert.Equal(t, "10.1.1.1:2055", cfg.Collector.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"log level", "nfprobe:\n  log:\n    level: verbose\n", "invalid log level"},
		{"log format", "nfprobe:\n  log:\n    format: xml\n", "invalid log format"},
		{"empty collector", "nfprobe:\n  collector:\n    address: \"\"\n", "collector.address is required"},
		{"zero cache", "nfprobe:\n  flow:\n    cache_size: 0\n", "flow.cache_size"},
		{"short timeout", "nfprobe:\n  flow:\n    inactive_timeout: 500ms\n", "flow.inactive_timeout"},
		{"octets", "nfprobe:\n  flow:\n    octets: payload\n", "invalid flow.octets"},
		{"input type", "nfprobe:\n  input:\n    type: netmap\n", "unsupported input.type"},
		{"missing interface", "nfprobe:\n  input:\n    type: afpacket\n", "input.interface is required"},
		{"engine id", "nfprobe:\n  export:\n    engine_id: 256\n", "export.engine_id"},
		{"nats subject", "nfprobe:\n  collector:\n    nats:\n      enabled: true\n      subject: \"\"\n", "collector.nats"},
		{"sampling interval", "nfprobe:\n  export:\n    sampling_interval: 16384\n", "export.sampling_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNormalizeCollector(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "10.0.0.1", want: "10.0.0.1:2055"},
		{in: "10.0.0.1:9995", want: "10.0.0.1:9995"},
		{in: "10.0.0.1:", want: "10.0.0.1:2055"},
		{in: "collector.local", want: "collector.local:2055"},
		{in: " collector.local:2056 ", want: "collector.local:2056"},
		{in: "::1", want: "[::1]:2055"},
		{in: "[::1]", want: "[::1]:2055"},
		{in: "[2001:db8::1]:9995", want: "[2001:db8::1]:9995"},
		{in: "", wantErr: true},
		{in: ":2055", wantErr: true},
		{in: "fe80::zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeCollector(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := normalizeCollector(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalisation must be idempotent")
		})
	}
}

func TestValidateAndApplyDefaultsIdempotent(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	before := *cfg
	require.NoError(t, cfg.ValidateAndApplyDefaults())
	assert.Equal(t, before, *cfg)
}

func TestDumpRoundTrip(t *testing.T) {
	path := writeConfig(t, `
nfprobe:
  collector:
    address: "[2001:db8::9]"
  flow:
    active_timeout: 90s
    cache_size: 12
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "nfprobe:\n"), out)
	assert.Contains(t, out, "active_timeout: 1m30s")
	assert.Contains(t, out, "[2001:db8::9]:2055")

	again, err := Load(writeConfig(t, out))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

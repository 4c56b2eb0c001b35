package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Dump writes cfg as YAML under the `nfprobe:` root key. The output can be
// fed back to Load.
func Dump(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(configRoot{NFProbe: *cfg}); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// MarshalYAML renders durations in time.ParseDuration form.
func (c CollectorConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Address      string `yaml:"address"`
		WriteTimeout string     `yaml:"write_timeout"`
		NATS         NATSConfig `yaml:"nats"`
	}{c.Address, c.WriteTimeout.String(), c.NATS}, nil
}

// MarshalYAML renders durations in time.ParseDuration form.
func (f FlowConfig) MarshalYAML() (interface{}, error) {
	return struct {
		ActiveTimeout   string `yaml:"active_timeout"`
		InactiveTimeout string `yaml:"inactive_timeout"`
		CacheSize       int    `yaml:"cache_size"`
		Octets          string `yaml:"octets"`
	}{f.ActiveTimeout.String(), f.InactiveTimeout.String(), f.CacheSize, f.Octets}, nil
}

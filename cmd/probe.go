package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firestige.xyz/nfprobe/internal/config"
	"firestige.xyz/nfprobe/internal/exporter"
	"firestige.xyz/nfprobe/internal/flow"
	"firestige.xyz/nfprobe/internal/log"
	"firestige.xyz/nfprobe/internal/metrics"
	"firestige.xyz/nfprobe/internal/netflow"
	"firestige.xyz/nfprobe/internal/source"
	"firestige.xyz/nfprobe/internal/transport"
)

// runProbe wires source, exporter and collector together and runs until the
// source is exhausted or the process is interrupted.
func runProbe(ctx context.Context, cfg *config.Config) error {
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	opts, err := exporterOptions(cfg)
	if err != nil {
		return err
	}

	src, err := source.Open(sourceConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open packet source: %w", err)
	}
	defer src.Close()

	tr, err := transport.DialUDP(cfg.Collector.Address)
	if err != nil {
		return err
	}
	defer tr.Close()
	if cfg.Collector.WriteTimeout > 0 {
		tr.SetWriteTimeout(cfg.Collector.WriteTimeout)
	}

	var sender transport.Sender = tr
	if nc := cfg.Collector.NATS; nc.Enabled {
		mirror, err := transport.DialNATS(nc.URL, nc.Subject)
		if err != nil {
			return err
		}
		defer mirror.Close()
		sender = transport.NewTee(tr, mirror)
	}

	slog.Info("probe started",
		"input", cfg.Input.Type,
		"collector", cfg.Collector.Address,
		"active_timeout", cfg.Flow.ActiveTimeout,
		"inactive_timeout", cfg.Flow.InactiveTimeout,
		"cache_size", cfg.Flow.CacheSize)

	summary, err := exporter.Run(ctx, src, sender, opts)
	slog.Info("probe finished", "summary", summary)
	return err
}

// sourceConfig converts the input section for source.Open.
func sourceConfig(cfg *config.Config) source.Config {
	in := cfg.Input
	return source.Config{
		Type: in.Type,
		File: in.File,
		Live: source.LiveConfig{
			Interface:    in.Interface,
			SnapLen:      in.SnapLen,
			Promiscuous:  in.Promiscuous,
			BPFFilter:    in.BPFFilter,
			Timeout:      time.Duration(in.TimeoutMs) * time.Millisecond,
			BufferSizeMB: in.BufferSizeMB,
		},
	}
}

// exporterOptions converts the flow and export sections for exporter.Run.
// cfg must have passed ValidateAndApplyDefaults.
func exporterOptions(cfg *config.Config) (exporter.Options, error) {
	octets, err := flow.ParseOctetSource(cfg.Flow.Octets)
	if err != nil {
		return exporter.Options{}, err
	}
	return exporter.Options{
		ActiveTimeout:   cfg.Flow.ActiveTimeout,
		InactiveTimeout: cfg.Flow.InactiveTimeout,
		CacheSize:       cfg.Flow.CacheSize,
		Octets:          octets,
		Export: netflow.BatcherOptions{
			EngineType:       uint8(cfg.Export.EngineType),
			EngineID:         uint8(cfg.Export.EngineID),
			SamplingMode:     uint8(cfg.Export.SamplingMode),
			SamplingInterval: uint16(cfg.Export.SamplingInterval),
		},
	}, nil
}

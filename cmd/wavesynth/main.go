// Command wavesynth generates a labeled IQ waveform dataset from a YAML run
// manifest and a JSON channel configuration, writing one JSON record per line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/sdrforge/wavesynth/internal/channel"
	"github.com/sdrforge/wavesynth/internal/generator"
	"github.com/sdrforge/wavesynth/internal/logging"
	"github.com/sdrforge/wavesynth/internal/telemetry"
)

func main() {
	manifestPath := flag.String("manifest", "manifest.yaml", "YAML run manifest")
	channelPath := flag.String("channel", "channel.json", "JSON channel configuration")
	outPath := flag.String("out", "dataset.jsonl", "output dataset file (JSON lines)")
	workers := flag.Int("workers", 0, "worker count override (0 keeps the manifest value)")
	seed := flag.Uint64("seed", 0, "seed override (0 keeps the manifest value)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	logFormat := flag.String("log-format", "text", "text or json")
	progress := flag.Bool("progress", true, "log per-record progress")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("parse log level: %v", err)
	}
	format, err := logging.ParseFormat(*logFormat)
	if err != nil {
		log.Fatalf("parse log format: %v", err)
	}
	logger := logging.New(level, format, os.Stderr)
	logging.SetDefault(logger)

	cfg, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatalf("load manifest: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	chanCfg, err := channel.LoadConfig(*channelPath)
	if err != nil {
		log.Fatalf("load channel config: %v", err)
	}

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer out.Close()

	opts := []generator.Option{generator.WithLogger(logger)}
	if *progress {
		opts = append(opts, generator.WithReporter(telemetry.NewStdoutReporter(logger)))
	}
	pipeline, err := generator.New(cfg, chanCfg, generator.NewJSONLSink(out), opts...)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting run",
		logging.F("manifest", *manifestPath),
		logging.F("channel", *channelPath),
		logging.F("out", *outPath),
		logging.F("signals", len(cfg.Signals)))

	stats, err := pipeline.Run(ctx)
	if err != nil && err != context.Canceled {
		log.Fatalf("run: %v", err)
	}
	if err := out.Sync(); err != nil {
		log.Fatalf("sync output: %v", err)
	}
	fmt.Printf("produced %d records (%d failed) -> %s\n", stats.Produced, stats.Failed, *outPath)
}

func loadManifest(path string) (generator.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return generator.Config{}, err
	}
	var cfg generator.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return generator.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

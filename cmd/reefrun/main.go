// Command reefrun builds a substrate from config, seeds it with noise and
// runs the diffusion kernel for a fixed number of ticks, writing channel
// telemetry and an optional snapshot at the end.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/reef/config"
	"github.com/pthm-cable/reef/snapshot"
	"github.com/pthm-cable/reef/substrate"
	"github.com/pthm-cable/reef/systems"
	"github.com/pthm-cable/reef/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	ticks := flag.Int("ticks", 0, "Run for N ticks (0 = use config)")
	seed := flag.Int64("seed", 0, "Noise seed (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, manifest and buffer dump")
	logStats := flag.Bool("log-stats", false, "Output channel stats via slog")
	serial := flag.Bool("serial", false, "Disable the parallel kernel pass")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	runTicks := cfg.Run.Ticks
	if *ticks > 0 {
		runTicks = *ticks
	}
	noiseSeed := cfg.Noise.Seed
	if *seed != 0 {
		noiseSeed = *seed
	}

	sub, err := config.Build(cfg)
	if err != nil {
		slog.Error("failed to build substrate", "error", err)
		os.Exit(1)
	}
	warnings, err := sub.Allocate()
	if err != nil {
		slog.Error("failed to allocate substrate", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn("allocation cast", "channel", w.Channel, "from", w.From.String(), "to", w.To.String())
	}
	slog.Info("substrate allocated",
		"width", sub.W(), "height", sub.H(),
		"total_depth", sub.TotalDepth(), "channels", len(sub.Channels()))

	// Seed the capacity field, then start the resource at capacity.
	seeder := systems.NewNoiseSeeder(noiseSeed)
	seeder.Scale = cfg.Noise.Scale
	seeder.Octaves = cfg.Noise.Octaves
	seeder.Lacunarity = cfg.Noise.Lacunarity
	seeder.Gain = cfg.Noise.Gain
	seeder.Contrast = cfg.Noise.Contrast

	capacityRef := substrate.ParseRef(cfg.Diffusion.Capacity)
	resourceRef := substrate.ParseRef(cfg.Diffusion.Resource)
	if err := seeder.Seed(sub, capacityRef); err != nil {
		slog.Error("failed to seed capacity", "error", err)
		os.Exit(1)
	}
	capView, err := sub.Read(capacityRef)
	if err != nil {
		slog.Error("failed to read capacity", "error", err)
		os.Exit(1)
	}
	if err := sub.Write(resourceRef, capView.Tensor()); err != nil {
		slog.Error("failed to initialize resource", "error", err)
		os.Exit(1)
	}

	diffusion, err := systems.NewDiffusion(sub, resourceRef, capacityRef)
	if err != nil {
		slog.Error("failed to build diffusion kernel", "error", err)
		os.Exit(1)
	}
	diffusion.SetParams(float32(cfg.Diffusion.Regrow), float32(cfg.Diffusion.Rate))

	collector, err := telemetry.NewCollector(sub, cfg.Telemetry.StatsWindow, resourceRef, capacityRef)
	if err != nil {
		slog.Error("failed to build collector", "error", err)
		os.Exit(1)
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	pool := systems.NewPool(cfg.Parallel.Workers)
	defer pool.Close()

	dt := float32(cfg.Run.DT)
	for tick := 1; tick <= runTicks; tick++ {
		if *serial {
			diffusion.Step(dt)
		} else {
			diffusion.StepParallel(pool, dt)
		}

		recs, err := collector.Collect(tick)
		if err != nil {
			slog.Error("telemetry failed", "tick", tick, "error", err)
			os.Exit(1)
		}
		if recs == nil {
			continue
		}
		if err := output.WriteStats(recs); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if *logStats {
			for _, r := range recs {
				r.LogStats()
			}
		}
	}

	if dir := output.Dir(); dir != "" {
		if err := snapshot.WriteManifest(filepath.Join(dir, "manifest.json"), sub); err != nil {
			slog.Error("failed to write manifest", "error", err)
			os.Exit(1)
		}
		if err := snapshot.WriteBuffer(filepath.Join(dir, "mem.reef"), sub); err != nil {
			slog.Error("failed to write buffer dump", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("run complete", "ticks", runTicks)
}

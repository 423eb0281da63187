// Command videocut is the CLI entrypoint for the video cutting toolkit.
//
// It parses flags, validates configuration, and runs one of the three
// batch pipelines (split, synth, enhance) or system diagnostics (--check).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju486/video-cut-tool/internal/check"
	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/display"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap — the logger doesn't exist yet, so errors go
	// directly to stderr via fmt. Once NewLogger succeeds, all output goes
	// through the logger for consistent formatting and log-file capture.
	cfg := config.DefaultConfig()
	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "videocut: %v\n", err)
		return 1
	}
	if err := config.ParseFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "videocut: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "videocut: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "videocut: %v\n", err)
		return 1
	}
	defer log.Close()

	display.PrintBanner()

	if cfg.CheckOnly {
		check.RunCheck(&cfg, log)
		return 0
	}

	log.Info("=== videocut v%s (%s) ===", version, commit)
	switch cfg.Command {
	case config.CommandEnhance:
		log.Info("Target: %s", cfg.Target)
	default:
		log.Info("Workdir: %s", cfg.WorkDir)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN — no files will be written")
	}
	log.Info("")

	// Fail fast if ffmpeg/ffprobe or the upscaler are unavailable.
	if err := check.CheckDeps(&cfg); err != nil {
		log.Error("%v", err)
		return 1
	}

	// Phase 2: Signal handling — cancel the context on SIGINT/SIGTERM so
	// batches stop between work units and subprocesses are killed. The
	// enhancement checkpoint survives for a later --resume run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, stopping…")
		cancel()
	}()

	// Phase 3: Dispatch the selected pipeline.
	switch cfg.Command {
	case config.CommandSplit:
		stats, err := pipeline.RunSplit(ctx, &cfg, log)
		if err != nil {
			log.Error("%v", err)
			return 1
		}
		if stats.Failed() > 0 {
			return 1
		}

	case config.CommandSynth:
		stats, err := pipeline.RunSynth(ctx, &cfg, log)
		if err != nil {
			log.Error("%v", err)
			return 1
		}
		if stats.Assembled < stats.Requested && ctx.Err() == nil {
			return 1
		}

	case config.CommandEnhance:
		stats, err := pipeline.RunEnhance(ctx, &cfg, log)
		if err != nil {
			log.Error("%v", err)
			return 1
		}
		if stats.Failed > 0 {
			return 1
		}
	}
	return 0
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/display"
	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/naming"
	"github.com/juju486/video-cut-tool/internal/probe"
	"github.com/juju486/video-cut-tool/internal/splitter"
	"github.com/juju486/video-cut-tool/internal/state"
)

const minSourceSize = 1000

// RunSplit is the segmentation batch entry point: discover raw sources in
// input/, segment each through the splitter state machine, and move every
// source into its terminal bucket (processed, detection-failed or
// split-failed) so re-runs only see new work.
func RunSplit(ctx context.Context, cfg *config.Config, log *logging.Logger) (SplitStats, error) {
	var stats SplitStats

	layout := NewLayout(cfg.WorkDir)
	if err := layout.EnsureSplit(); err != nil {
		return stats, err
	}

	aliases, err := state.LoadAliasMap(layout.AliasMapPath())
	if err != nil {
		return stats, err
	}

	files, err := DiscoverMedia(layout.InputDir())
	if err != nil {
		return stats, err
	}
	stats.Total = len(files)

	log.Info("Found %d pending sources", stats.Total)
	log.Info("Scene threshold: %.2f", cfg.SceneThreshold)
	if cfg.Force {
		log.Info("Force: re-splitting sources with existing aliases")
	}

	exec := executor.New(log, layout.LogsDir(), cfg.OpTimeout)
	sp := splitter.New(log, exec, cfg.SceneThreshold)

	for i, path := range files {
		stats.Current = i + 1
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		processSource(ctx, cfg, log, layout, sp, aliases, path, &stats)
	}

	log.Info("==============================")
	log.Info("Done: %d split (%d segments), %d skipped, %d detection-failed, %d split-failed",
		stats.Split, stats.Segments, stats.Skipped, stats.DetectFailed, stats.SplitFailed)
	return stats, nil
}

// processSource handles one raw source: validate → alias → segment → bucket.
func processSource(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	layout Layout,
	sp *splitter.Splitter,
	aliases *state.AliasMap,
	path string,
	stats *SplitStats,
) {
	basename := filepath.Base(path)
	log.Info("[%d/%d] %s", stats.Current, stats.Total, basename)

	fi, err := os.Stat(path)
	if err != nil {
		log.Error("File not found: %s", path)
		stats.SplitFailed++
		return
	}
	if fi.Size() < minSourceSize {
		log.Error("File too small (possibly corrupt): %s (%s)", basename, display.FormatBytes(fi.Size()))
		bucket(log, path, layout.DetectFailedDir())
		stats.DetectFailed++
		return
	}

	if _, err := probe.Probe(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("Cannot probe source: %v", err)
		bucket(log, path, layout.DetectFailedDir())
		stats.DetectFailed++
		return
	}

	alias, known := naming.AliasFor(aliases.Entries, basename)
	if known && !cfg.Force {
		log.Warn("Skip (already split as %s): %s", alias, basename)
		bucket(log, path, layout.ProcessedDir())
		stats.Skipped++
		return
	}
	if !known {
		alias = naming.NextAlias(aliases.Entries)
		if err := aliases.Assign(alias, basename); err != nil {
			log.Error("Cannot record alias: %v", err)
			stats.SplitFailed++
			return
		}
	}
	log.Info("  alias: %s", alias)

	if cfg.DryRun {
		log.Success("[DRY] Would split %s into %s", basename, layout.ClipsDir())
		stats.Split++
		return
	}

	res, err := sp.ProcessSource(ctx, path, alias, layout.ClipsDir())
	if ctx.Err() != nil {
		return
	}

	switch res.State {
	case splitter.StateDone:
		if len(res.Segments) == 0 {
			log.Warn("No segments produced for %s", basename)
		} else {
			log.Success("Split into %d segments", len(res.Segments))
		}
		stats.Split++
		stats.Segments += len(res.Segments)
		bucket(log, path, layout.ProcessedDir())

	case splitter.StateDetectFailed:
		log.Error("Detection failed permanently: %v", err)
		stats.DetectFailed++
		bucket(log, path, layout.DetectFailedDir())

	case splitter.StateSplitFailed:
		log.Error("Cutting failed permanently: %v", err)
		stats.SplitFailed++
		bucket(log, path, layout.SplitFailedDir())

	default:
		log.Error("Unexpected terminal state %s: %v", res.State, err)
		stats.SplitFailed++
	}
}

// bucket moves a source into its terminal folder. A failed move is logged
// but never fails the batch: the worst case is re-discovery next run.
func bucket(log *logging.Logger, path, dir string) {
	if err := moveInto(path, dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Cannot move %s to %s: %v", filepath.Base(path), dir, err)
	}
}

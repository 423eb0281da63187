package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/display"
	"github.com/juju486/video-cut-tool/internal/enhance"
	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/naming"
)

// RunEnhance is the enhancement batch entry point. The target is either a
// single video or a directory of videos; already-enhanced outputs are
// recognized by their name suffix and skipped.
func RunEnhance(ctx context.Context, cfg *config.Config, log *logging.Logger) (EnhanceStats, error) {
	var stats EnhanceStats

	files, logDir, err := enhanceTargets(cfg.Target)
	if err != nil {
		return stats, err
	}
	stats.Total = len(files)

	log.Info("Found %d videos to enhance", stats.Total)
	log.Info("Upscaler: %s, model %s, factor x%d, %d workers",
		cfg.UpscaleBinary, cfg.UpscaleModel, cfg.UpscaleFactor, cfg.Workers)
	if cfg.Resume {
		log.Info("Resume: reusing partial scratch directories when present")
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return stats, err
	}
	exec := executor.New(log, logDir, cfg.OpTimeout)
	p := enhance.New(log, exec, enhance.Options{
		Binary:  cfg.UpscaleBinary,
		Model:   cfg.UpscaleModel,
		Factor:  cfg.UpscaleFactor,
		Workers: cfg.Workers,
		Resume:  cfg.Resume,
	})

	suffix := fmt.Sprintf("_x%d", cfg.UpscaleFactor)
	for i, path := range files {
		stats.Current = i + 1
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		basename := filepath.Base(path)
		log.Info("[%d/%d] %s", stats.Current, stats.Total, basename)

		stem := strings.TrimSuffix(basename, filepath.Ext(basename))
		if strings.HasSuffix(stem, suffix) {
			log.Warn("Skip (already an enhanced output): %s", basename)
			stats.Skipped++
			continue
		}
		outPath := naming.EnhancedFileName(path, cfg.UpscaleFactor)
		if _, err := os.Stat(outPath); err == nil && !cfg.Force {
			log.Warn("Skip (exists): %s", filepath.Base(outPath))
			stats.Skipped++
			continue
		}

		if cfg.DryRun {
			log.Success("[DRY] Would enhance %s -> %s", basename, filepath.Base(outPath))
			stats.Enhanced++
			continue
		}

		start := time.Now()
		out, err := p.Enhance(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Interrupted")
				break
			}
			log.Error("Enhancement failed: %v", err)
			stats.Failed++
			continue
		}
		stats.Enhanced++
		log.Success("Enhanced in %s: %s", display.FormatSeconds(time.Since(start).Seconds()), filepath.Base(out))
	}

	log.Info("==============================")
	log.Info("Done: %d enhanced, %d skipped, %d failed", stats.Enhanced, stats.Skipped, stats.Failed)
	return stats, nil
}

// enhanceTargets resolves the target argument to a file list and a log
// directory next to the work.
func enhanceTargets(target string) ([]string, string, error) {
	fi, err := os.Stat(target)
	if err != nil {
		return nil, "", fmt.Errorf("enhance target: %w", err)
	}
	if fi.IsDir() {
		files, err := DiscoverMedia(target)
		if err != nil {
			return nil, "", err
		}
		return files, filepath.Join(target, "logs"), nil
	}
	if !mediaExtensions[strings.ToLower(filepath.Ext(target))] {
		return nil, "", fmt.Errorf("enhance target %s is not a recognized video file", filepath.Base(target))
	}
	return []string{target}, filepath.Join(filepath.Dir(target), "logs"), nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/display"
	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/naming"
	"github.com/juju486/video-cut-tool/internal/probe"
	"github.com/juju486/video-cut-tool/internal/reconcile"
	"github.com/juju486/video-cut-tool/internal/state"
)

// Batch-level failure sentinels.
var (
	ErrEmptyClipPool  = errors.New("segment pool is empty")
	ErrEmptyMusicPool = errors.New("music pool is empty")
)

// durationFunc probes a file's duration. Swapped out in tests.
type durationFunc func(ctx context.Context, path string) (float64, error)

// RunSynth is the synthesis batch entry point: load the segment and music
// pools, then assemble cfg.Count deliverables, each matched to the next
// audio track in round-robin order. Selection failures skip the target and
// move on; the batch aborts early once failures reach twice the requested
// count.
func RunSynth(ctx context.Context, cfg *config.Config, log *logging.Logger) (SynthStats, error) {
	var stats SynthStats
	stats.Requested = cfg.Count

	layout := NewLayout(cfg.WorkDir)
	if err := layout.EnsureSynth(); err != nil {
		return stats, err
	}

	pool, err := loadClipPool(ctx, log, layout.ClipsDir(), probe.Duration)
	if err != nil {
		return stats, err
	}
	if len(pool) == 0 {
		return stats, fmt.Errorf("%w: %s", ErrEmptyClipPool, layout.ClipsDir())
	}

	var intro []reconcile.Clip
	if cfg.UseIntro {
		intro, err = loadIntro(ctx, log, layout.IntroDir(), probe.Duration)
		if err != nil {
			return stats, err
		}
	}

	tracks, err := loadMusicPool(ctx, cfg, log, layout, probe.Duration)
	if err != nil {
		return stats, err
	}
	if len(tracks) == 0 {
		return stats, fmt.Errorf("%w: %s", ErrEmptyMusicPool, layout.MusicDir())
	}

	batch, err := state.LoadBatchState(layout.BatchStatePath())
	if err != nil {
		return stats, err
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	started := time.Now()
	outDir := filepath.Join(layout.OutputDir(), started.Format("20060102-150405"))
	manifest := &state.Manifest{BatchID: uuid.NewString(), StartedAt: started}

	log.Info("Pool: %d segments, %d audio tracks, %d intro clips", len(pool), len(tracks), len(intro))
	log.Info("Batch %s: %d deliverables requested", manifest.BatchID, cfg.Count)

	if !cfg.DryRun {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return stats, err
		}
	}

	exec := executor.New(log, layout.LogsDir(), cfg.OpTimeout)
	asm := reconcile.NewAssembler(log, exec)
	bounds := boundsFromConfig(cfg)
	used := map[string]bool{}
	maxSkips := 2 * cfg.Count

	for stats.Assembled < cfg.Count {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}
		if stats.Skipped >= maxSkips {
			log.Error("Aborting batch: %d targets skipped (limit %d)", stats.Skipped, maxSkips)
			break
		}

		track := tracks[batch.LastAudioIndex%len(tracks)]
		batch.LastAudioIndex++

		log.Info("[%d/%d] audio %s (%s)", stats.Assembled+1, cfg.Count,
			filepath.Base(track.Path), display.FormatSeconds(track.Duration))

		plan, attempts, err := reconcile.Select(rng, pool, track.Duration, bounds, used, cfg.MaxAttempts)
		stats.Attempts += attempts
		if err != nil {
			log.Warn("Skip target: %v", err)
			stats.Skipped++
			continue
		}

		log.Info("  %d clips, %s total, rate %s, trim %.1fs (%d attempts)",
			len(plan.Clips), display.FormatSeconds(plan.Total),
			display.FormatRate(plan.Rate), plan.TrimLast, attempts)

		if cfg.DryRun {
			log.Success("[DRY] Would assemble %v against %s", plan.Aliases(), filepath.Base(track.Path))
			used[plan.Key()] = true
			stats.Assembled++
			continue
		}

		outName := naming.OutputFileName(batch.LastOutputIndex + 1)
		outPath := filepath.Join(outDir, outName)
		if err := asm.Assemble(ctx, plan, intro, track, outPath); err != nil {
			if ctx.Err() != nil {
				log.Warn("Interrupted")
				break
			}
			log.Error("Assembly failed: %v", err)
			stats.Skipped++
			continue
		}

		batch.LastOutputIndex++
		used[plan.Key()] = true
		manifest.Entries = append(manifest.Entries, state.ManifestEntry{
			Output:    outName,
			Segments:  plan.Aliases(),
			Audio:     filepath.Base(track.Path),
			Rate:      plan.Rate,
			TrimLast:  plan.TrimLast,
			ClipsDir:  layout.ClipsDir(),
			MusicDir:  layout.MusicDir(),
			CreatedAt: time.Now(),
		})
		if err := state.SaveBatchState(layout.BatchStatePath(), batch); err != nil {
			return stats, fmt.Errorf("persist batch state: %w", err)
		}
		stats.Assembled++
		log.Success("Assembled %s", outName)
	}

	if len(manifest.Entries) > 0 {
		if err := state.WriteManifest(filepath.Join(outDir, state.ManifestFile), manifest); err != nil {
			return stats, fmt.Errorf("write manifest: %w", err)
		}
	}

	log.Info("==============================")
	log.Info("Done: %d/%d assembled, %d skipped, %d selection attempts",
		stats.Assembled, stats.Requested, stats.Skipped, stats.Attempts)
	if len(manifest.Entries) > 0 {
		log.Info("Output: %s", outDir)
	}
	return stats, nil
}

func boundsFromConfig(cfg *config.Config) reconcile.Bounds {
	return reconcile.Bounds{
		MinClip:        cfg.MinClip,
		MaxClip:        cfg.MaxClip,
		MinRate:        cfg.MinRate,
		MaxRate:        cfg.MaxRate,
		MaxAVDiff:      cfg.MaxAVDiff,
		ShorterMaxDiff: cfg.ShorterMaxDiff,
		LongerMaxDiff:  cfg.LongerMaxDiff,
	}
}

// loadClipPool probes every pool segment that follows the naming
// convention. Unreadable segments are logged and left out rather than
// failing the batch.
func loadClipPool(ctx context.Context, log *logging.Logger, dir string, probeDur durationFunc) ([]reconcile.Clip, error) {
	files, err := DiscoverMedia(dir)
	if err != nil {
		return nil, err
	}
	var pool []reconcile.Clip
	for _, path := range files {
		base := filepath.Base(path)
		alias, ordinal, ok := naming.ParseSegmentName(base)
		if !ok {
			log.Debug("Ignoring non-pool file %s", base)
			continue
		}
		dur, err := probeDur(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Unreadable segment %s: %v", base, err)
			continue
		}
		pool = append(pool, reconcile.Clip{
			Alias:    naming.SegmentAlias(alias, ordinal),
			Path:     path,
			Duration: dur,
		})
	}
	return pool, nil
}

// loadIntro loads the optional intro clips. A missing open/ directory just
// means no intro.
func loadIntro(ctx context.Context, log *logging.Logger, dir string, probeDur durationFunc) ([]reconcile.Clip, error) {
	files, err := DiscoverMedia(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var intro []reconcile.Clip
	for _, path := range files {
		dur, err := probeDur(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Unreadable intro clip %s: %v", filepath.Base(path), err)
			continue
		}
		intro = append(intro, reconcile.Clip{Alias: filepath.Base(path), Path: path, Duration: dur})
	}
	return intro, nil
}

// loadMusicPool probes every audio track and, when the duration filter is
// configured, moves out-of-range tracks into music/filtered/ so they stay
// available but out of rotation.
func loadMusicPool(ctx context.Context, cfg *config.Config, log *logging.Logger, layout Layout, probeDur durationFunc) ([]reconcile.AudioTrack, error) {
	files, err := DiscoverAudio(layout.MusicDir())
	if err != nil {
		return nil, err
	}
	filterOn := cfg.MusicMinLen > 0 || cfg.MusicMaxLen > 0

	var tracks []reconcile.AudioTrack
	for _, path := range files {
		base := filepath.Base(path)
		dur, err := probeDur(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("Unreadable audio track %s: %v", base, err)
			continue
		}
		if filterOn && outsideRange(dur, cfg.MusicMinLen, cfg.MusicMaxLen) {
			log.Info("Filtering out %s (%s)", base, display.FormatSeconds(dur))
			if err := moveInto(path, layout.FilteredMusicDir()); err != nil {
				log.Warn("Cannot move %s to filtered: %v", base, err)
			}
			continue
		}
		tracks = append(tracks, reconcile.AudioTrack{Path: path, Duration: dur})
	}
	return tracks, nil
}

func outsideRange(dur, min, max float64) bool {
	if min > 0 && dur < min {
		return true
	}
	if max > 0 && dur > max {
		return true
	}
	return false
}

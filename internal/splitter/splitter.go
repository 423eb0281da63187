// Package splitter turns raw source videos into ordered, alias-named scene
// segments. Detection and cutting run through the executor; sources that
// survive neither the normal path nor the repair escalation are bucketed
// permanently so they are never retried on later runs.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/naming"
	"github.com/juju486/video-cut-tool/internal/probe"
)

// Terminal per-source failures. Callers bucket the source accordingly.
var (
	ErrDetectionFailed = errors.New("scene detection failed")
	ErrSplitFailed     = errors.New("segment cutting failed")
)

// SourceState tracks one source through the segmentation state machine.
type SourceState int

const (
	StatePending SourceState = iota
	StateRepairing
	StateDone
	StateDetectFailed
	StateSplitFailed
)

func (s SourceState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRepairing:
		return "repairing"
	case StateDone:
		return "done"
	case StateDetectFailed:
		return "detection-failed"
	case StateSplitFailed:
		return "split-failed"
	default:
		return "unknown"
	}
}

// Segment is one accepted scene-bounded sub-clip in the pool.
type Segment struct {
	Alias    string // e.g. "c001_2"
	Ordinal  int
	Path     string
	Duration float64
}

// Runner is the slice of the executor the splitter needs. Narrow so tests
// can script outcomes without spawning processes.
type Runner interface {
	Run(ctx context.Context, op executor.Operation) error
	Capture(ctx context.Context, name string, argv []string) executor.CommandResult
	QuickFix(ctx context.Context, path string) (string, error)
}

// Splitter segments one source at a time. At most one in-flight attempt per
// source is guaranteed by the sequential batch loop driving it.
type Splitter struct {
	log       *logging.Logger
	runner    Runner
	threshold float64

	// probeDuration is swapped out in tests.
	probeDuration func(ctx context.Context, path string) (float64, error)
}

// New builds a Splitter using the given executor and scene-score threshold.
func New(log *logging.Logger, runner Runner, threshold float64) *Splitter {
	return &Splitter{
		log:           log,
		runner:        runner,
		threshold:     threshold,
		probeDuration: probe.Duration,
	}
}

// Result reports the outcome of processing one source.
type Result struct {
	State    SourceState
	Segments []Segment
}

// ProcessSource runs the full state machine for one source: detect (with
// repair escalation), cut each boundary pair, and re-encode accepted
// segments into the pool. A source with fewer than two boundaries is done
// with zero segments: skipped, not failed.
func (s *Splitter) ProcessSource(ctx context.Context, path, alias, clipsDir string) (Result, error) {
	boundaries, err := s.detectWithRepair(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Result{State: StatePending}, ctx.Err()
		}
		return Result{State: StateDetectFailed}, fmt.Errorf("%w: %s: %v", ErrDetectionFailed, filepath.Base(path), err)
	}

	boundaries = NormalizeBoundaries(boundaries)
	if len(boundaries) < 2 {
		s.log.Info("No scene cuts in %s, skipping", filepath.Base(path))
		return Result{State: StateDone}, nil
	}

	segments, err := s.cutAll(ctx, path, boundaries, alias, clipsDir)
	if err != nil {
		if ctx.Err() != nil {
			return Result{State: StatePending}, ctx.Err()
		}
		removeSegments(segments)
		return Result{State: StateSplitFailed}, fmt.Errorf("%w: %s: %v", ErrSplitFailed, filepath.Base(path), err)
	}
	return Result{State: StateDone, Segments: segments}, nil
}

// detectWithRepair runs detection once, and on failure escalates through the
// quick fix and retries detection exactly once against the repaired file.
func (s *Splitter) detectWithRepair(ctx context.Context, path string) ([]float64, error) {
	boundaries, err := s.detect(ctx, path)
	if err == nil {
		return boundaries, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.log.Warn("Detection failed for %s, repairing and retrying once", filepath.Base(path))
	s.log.Debug("%s: %s -> %s", filepath.Base(path), StatePending, StateRepairing)
	repaired, fixErr := s.runner.QuickFix(ctx, path)
	if fixErr != nil {
		return nil, fmt.Errorf("detect: %v; repair: %v", err, fixErr)
	}
	defer os.Remove(repaired)

	return s.detect(ctx, repaired)
}

// cutAll cuts every adjacent boundary pair in order and re-encodes the
// accepted segment for pool compatibility. Segment ordinals follow boundary
// order starting at 1.
func (s *Splitter) cutAll(ctx context.Context, path string, boundaries []float64, alias, clipsDir string) ([]Segment, error) {
	var segments []Segment
	ordinal := 0
	for i := 0; i+1 < len(boundaries); i++ {
		start, end := boundaries[i], boundaries[i+1]
		length := end - start
		if length <= 0 {
			continue
		}
		ordinal++

		finalPath := filepath.Join(clipsDir, naming.SegmentFileName(alias, ordinal))
		if err := s.cutSegment(ctx, path, start, length, alias, ordinal, finalPath); err != nil {
			return segments, err
		}

		dur, err := s.probeDuration(ctx, finalPath)
		if err != nil || dur <= 0 {
			os.Remove(finalPath)
			return segments, fmt.Errorf("segment %s unreadable after encode: %v", filepath.Base(finalPath), err)
		}

		segments = append(segments, Segment{
			Alias:    naming.SegmentAlias(alias, ordinal),
			Ordinal:  ordinal,
			Path:     finalPath,
			Duration: dur,
		})
	}
	return segments, nil
}

// cutSegment extracts [start, start+length) to a raw intermediate and then
// re-encodes it into its final pool form. The raw cut keeps stream copy as
// the fast path with a re-encode fallback; the executor adds its own repair
// escalation on top.
func (s *Splitter) cutSegment(ctx context.Context, src string, start, length float64, alias string, ordinal int, finalPath string) error {
	rawPath := finalPath + ".raw.mp4"
	defer os.Remove(rawPath)

	cut := executor.Operation{
		Name:       "cut-" + alias,
		InputPath:  src,
		OutputPath: rawPath,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-ss", ftoa(start), "-i", src, "-t", ftoa(length),
				"-c", "copy", "-avoid_negative_ts", "make_zero", rawPath,
			},
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-ss", ftoa(start), "-i", src, "-t", ftoa(length),
				"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", rawPath,
			},
		},
	}
	if err := s.runner.Run(ctx, cut); err != nil {
		return fmt.Errorf("cut segment %d: %w", ordinal, err)
	}

	compat := executor.Operation{
		Name:       "compat-" + alias,
		InputPath:  rawPath,
		OutputPath: finalPath,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", rawPath,
				"-c:v", "libx264", "-preset", "medium", "-pix_fmt", "yuv420p",
				"-c:a", "aac", "-ar", "44100",
				"-movflags", "+faststart", finalPath,
			},
		},
	}
	if err := s.runner.Run(ctx, compat); err != nil {
		return fmt.Errorf("compat encode segment %d: %w", ordinal, err)
	}
	return nil
}

func removeSegments(segments []Segment) {
	for _, seg := range segments {
		os.Remove(seg.Path)
	}
}

func ftoa(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

// Package config holds runtime configuration: defaults, env-file overlay,
// CLI flag parsing, and validation. Defaults match the legacy tool so that
// existing working directories keep producing the same output.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Command selects which pipeline the binary runs.
type Command string

const (
	CommandNone    Command = ""        // No pipeline (e.g. --check).
	CommandSplit   Command = "split"   // Scene segmentation batch.
	CommandSynth   Command = "synth"   // Clip/audio synthesis batch.
	CommandEnhance Command = "enhance" // Super-resolution enhancement.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid with VIDEOCUT_* environment variables by [ApplyEnv], and then
// mutated by [ParseFlags] before being passed (by pointer) to packages that
// need it. Fields are grouped by concern with inline documentation of
// defaults.
type Config struct {
	// Command and positional arguments.
	Command Command
	WorkDir string // Working directory for split/synth (input/, clips/, music/, output/, …).
	Target  string // Video file or directory for enhance.

	// Scene segmentation.
	SceneThreshold float64 // Default: 0.35. ffmpeg scene-change score threshold (0..1).
	Force          bool    // Re-split sources whose alias already exists in the pool.

	// Synthesis selection bounds (seconds unless noted).
	Count          int     // Default: 1. Deliverables to assemble this batch.
	MinClip        float64 // Default: 2.0. Segments shorter than this are excluded.
	MaxClip        float64 // Default: 30.0. Segments longer than this are excluded.
	MinRate        float64 // Default: 0.9. Lowest acceptable playback-rate multiplier.
	MaxRate        float64 // Default: 1.1. Highest acceptable playback-rate multiplier.
	MaxAVDiff      float64 // Default: 0.2. Accepted |video-audio| duration difference.
	ShorterMaxDiff float64 // Default: 5.0. Largest shortfall worth rate-correcting.
	LongerMaxDiff  float64 // Default: 5.0. Largest overshoot worth rate-correcting or trimming.
	MaxAttempts    int     // Default: 100. Selection attempts per deliverable.
	MusicMinLen    float64 // Default: 0 (off). Audio duration pre-filter lower bound.
	MusicMaxLen    float64 // Default: 0 (off). Audio duration pre-filter upper bound.
	UseIntro       bool    // Default: true. Prepend intro segments from open/ when present.
	RandomSeed     int64   // Default: 0 (time-seeded). Fixed seed for reproducible selection.

	// Enhancement.
	UpscaleBinary string // Default: "realesrgan-ncnn-vulkan".
	UpscaleModel  string // Default: "realesr-animevideov3".
	UpscaleFactor int    // Default: 4. Allowed: 2, 3, 4.
	Workers       int    // Default: 2. Concurrent frame workers.
	Resume        bool   // Reuse an existing scratch dir and its checkpoint.

	// Executor.
	OpTimeout time.Duration // Default: 5m. Per-invocation subprocess timeout.

	// Behavior flags.
	DryRun bool

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults matching the legacy
// tool's behavior. Used as the base before [ApplyEnv] and [ParseFlags]
// apply overrides.
func DefaultConfig() Config {
	return Config{
		SceneThreshold: 0.35,
		Count:          1,
		MinClip:        2.0,
		MaxClip:        30.0,
		MinRate:        0.9,
		MaxRate:        1.1,
		MaxAVDiff:      0.2,
		ShorterMaxDiff: 5.0,
		LongerMaxDiff:  5.0,
		MaxAttempts:    100,
		UseIntro:       true,
		UpscaleBinary:  "realesrgan-ncnn-vulkan",
		UpscaleModel:   "realesr-animevideov3",
		UpscaleFactor:  4,
		Workers:        2,
		OpTimeout:      5 * time.Minute,
		ColorMode:      ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an
// empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric bounds. When not in CheckOnly
// mode it also requires a command with its positional argument.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.SceneThreshold <= 0 || c.SceneThreshold >= 1 {
		return fmt.Errorf("scene threshold %.2f out of range (0, 1)", c.SceneThreshold)
	}
	if c.MinClip <= 0 || c.MaxClip <= c.MinClip {
		return fmt.Errorf("clip bounds invalid: min %.1fs, max %.1fs", c.MinClip, c.MaxClip)
	}
	if c.MinRate <= 0 || c.MinRate > 1 || c.MaxRate < 1 {
		return fmt.Errorf("rate bounds invalid: min %.3f, max %.3f (must straddle 1.0)", c.MinRate, c.MaxRate)
	}
	if c.MaxAVDiff <= 0 {
		return errors.New("max A/V difference must be positive")
	}
	if c.Count < 1 {
		return errors.New("count must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.MusicMinLen > 0 && c.MusicMaxLen > 0 && c.MusicMaxLen < c.MusicMinLen {
		return errors.New("music duration filter: max is below min")
	}
	switch c.UpscaleFactor {
	case 2, 3, 4:
		// valid
	default:
		return errors.New("upscale factor must be 2, 3 or 4")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.OpTimeout < time.Second {
		return errors.New("operation timeout must be at least 1s")
	}

	if c.CheckOnly {
		return nil
	}

	switch c.Command {
	case CommandSplit, CommandSynth:
		if c.WorkDir == "" {
			return fmt.Errorf("%s requires a working directory argument", c.Command)
		}
	case CommandEnhance:
		if c.Target == "" {
			return errors.New("enhance requires a video file or directory argument")
		}
	default:
		return errors.New("missing command (use 'split', 'synth' or 'enhance')")
	}
	return nil
}

// Package pipeline orchestrates the three batch runs: scene segmentation
// over raw sources, clip/audio synthesis, and enhancement. Each run wires
// the executor and the domain packages together, moves work units through
// the working-directory layout, and reports aggregate stats.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju486/video-cut-tool/internal/state"
)

// Layout maps the fixed working-directory structure shared by the split and
// synth runs. All paths are derived from one root.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// InputDir holds pending raw sources. Processed and failed sources are
// moved into its subfolders so a re-run never picks them up again.
func (l Layout) InputDir() string        { return filepath.Join(l.Root, "input") }
func (l Layout) ProcessedDir() string    { return filepath.Join(l.InputDir(), "processed") }
func (l Layout) DetectFailedDir() string { return filepath.Join(l.InputDir(), "detection-failed") }
func (l Layout) SplitFailedDir() string  { return filepath.Join(l.InputDir(), "split-failed") }

// ClipsDir is the flat segment pool.
func (l Layout) ClipsDir() string { return filepath.Join(l.Root, "clips") }

// IntroDir holds optional intro segments prepended to every deliverable.
func (l Layout) IntroDir() string { return filepath.Join(l.Root, "open") }

func (l Layout) MusicDir() string         { return filepath.Join(l.Root, "music") }
func (l Layout) FilteredMusicDir() string { return filepath.Join(l.MusicDir(), "filtered") }

func (l Layout) OutputDir() string { return filepath.Join(l.Root, "output") }
func (l Layout) LogsDir() string   { return filepath.Join(l.Root, "logs") }

func (l Layout) AliasMapPath() string   { return filepath.Join(l.Root, state.AliasMapFile) }
func (l Layout) BatchStatePath() string { return filepath.Join(l.Root, state.BatchStateFile) }

// EnsureSplit creates every directory the split run writes into.
func (l Layout) EnsureSplit() error {
	return ensureDirs(
		l.InputDir(), l.ProcessedDir(), l.DetectFailedDir(), l.SplitFailedDir(),
		l.ClipsDir(), l.LogsDir(),
	)
}

// EnsureSynth creates every directory the synth run writes into.
func (l Layout) EnsureSynth() error {
	return ensureDirs(
		l.ClipsDir(), l.MusicDir(), l.OutputDir(), l.LogsDir(),
	)
}

func ensureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// moveInto relocates path into dir, creating dir if needed.
func moveInto(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}

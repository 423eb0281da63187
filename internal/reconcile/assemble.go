package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
)

// AudioTrack is the chosen music track a deliverable is assembled against.
type AudioTrack struct {
	Path     string
	Duration float64
}

// Runner is the slice of the executor the assembler needs.
type Runner interface {
	Run(ctx context.Context, op executor.Operation) error
}

// Assembler drives the five external stages that turn an accepted Plan into
// a finished deliverable. Any stage failure aborts the whole assembly; the
// executor's internal variant retry is the only per-stage retry.
type Assembler struct {
	log    *logging.Logger
	runner Runner
}

// NewAssembler builds an Assembler on top of the given executor.
func NewAssembler(log *logging.Logger, runner Runner) *Assembler {
	return &Assembler{log: log, runner: runner}
}

// Assemble runs concat → rate → tail-trim → mux (hard-trimmed to the audio)
// → container normalization, leaving the deliverable at outPath. Intro
// clips are prepended ahead of the plan's clips and sit outside the
// duration arithmetic: the audio is offset past them and the final length
// is intro + audio. All intermediates live in a scratch directory that is
// removed on every exit path.
func (a *Assembler) Assemble(ctx context.Context, plan *Plan, intro []Clip, audio AudioTrack, outPath string) error {
	scratch := filepath.Join(filepath.Dir(outPath), ".work-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	introDur := 0.0
	for _, c := range intro {
		introDur += c.Duration
	}

	// Stage 1: concatenate intro + selected clips.
	a.log.Stage("concat: %d clips (%d intro)", len(intro)+len(plan.Clips), len(intro))
	concatOut := filepath.Join(scratch, "concat.mp4")
	listPath := filepath.Join(scratch, "list.txt")
	if err := writeConcatList(listPath, intro, plan.Clips); err != nil {
		return err
	}
	if err := a.runner.Run(ctx, concatOp(listPath, concatOut)); err != nil {
		return fmt.Errorf("concat stage: %w", err)
	}
	current := concatOut

	// Stage 2: playback-rate change (skipped at 1.0). The change applies to
	// the whole concat, intro included, so the intro's on-screen length
	// scales with it; downstream offsets use the scaled value.
	effectiveIntro := introDur * plan.Rate
	if plan.Rate != 1.0 {
		a.log.Stage("rate: %.3fx", plan.Rate)
		ratedOut := filepath.Join(scratch, "rated.mp4")
		if err := a.runner.Run(ctx, rateOp(current, ratedOut, plan.Rate)); err != nil {
			return fmt.Errorf("rate stage: %w", err)
		}
		current = ratedOut
	}

	// Stage 3: tail trim (skipped at 0). Trim and rate are mutually
	// exclusive by construction, so the pre-trim duration is intro + total.
	if plan.TrimLast > 0 {
		keep := effectiveIntro + plan.Total - plan.TrimLast
		a.log.Stage("trim: -%.3fs", plan.TrimLast)
		trimmedOut := filepath.Join(scratch, "trimmed.mp4")
		if err := a.runner.Run(ctx, trimOp(current, trimmedOut, keep)); err != nil {
			return fmt.Errorf("trim stage: %w", err)
		}
		current = trimmedOut
	}

	// Stage 4: mux against the audio, hard-trimmed to intro + audio length.
	a.log.Stage("mux: %s", filepath.Base(audio.Path))
	muxedOut := filepath.Join(scratch, "muxed.mp4")
	if err := a.runner.Run(ctx, muxOp(current, audio.Path, muxedOut, effectiveIntro, effectiveIntro+audio.Duration)); err != nil {
		return fmt.Errorf("mux stage: %w", err)
	}

	// Stage 5: re-mux to normalize the container index.
	a.log.Stage("finalize: %s", filepath.Base(outPath))
	if err := a.runner.Run(ctx, finalizeOp(muxedOut, outPath)); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("finalize stage: %w", err)
	}
	return nil
}

// writeConcatList emits the ffmpeg concat-demuxer list file. Single quotes
// in paths are escaped per the demuxer's quoting rules.
func writeConcatList(path string, intro, clips []Clip) error {
	var b []byte
	for _, c := range intro {
		b = append(b, "file '"+escapeConcatPath(c.Path)+"'\n"...)
	}
	for _, c := range clips {
		b = append(b, "file '"+escapeConcatPath(c.Path)+"'\n"...)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func escapeConcatPath(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\'' {
			out = append(out, `'\''`...)
			continue
		}
		out = append(out, p[i])
	}
	return string(out)
}

func concatOp(listPath, out string) executor.Operation {
	return executor.Operation{
		Name:       "synth-concat",
		InputPath:  listPath,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-f", "concat", "-safe", "0", "-i", listPath,
				"-c", "copy", out,
			},
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-f", "concat", "-safe", "0", "-i", listPath,
				"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", out,
			},
		},
	}
}

// rateOp stretches or compresses the video timeline by the duration
// multiplier: setpts=PTS*rate lengthens for rate > 1. Audio is dropped;
// the deliverable's audio comes from the music track at mux time.
func rateOp(in, out string, rate float64) executor.Operation {
	return executor.Operation{
		Name:       "synth-rate",
		InputPath:  in,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", in,
				"-vf", fmt.Sprintf("setpts=PTS*%.6f", rate),
				"-an", "-c:v", "libx264", "-preset", "veryfast", out,
			},
		},
	}
}

func trimOp(in, out string, keep float64) executor.Operation {
	return executor.Operation{
		Name:       "synth-trim",
		InputPath:  in,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", in, "-t", fmt.Sprintf("%.3f", keep),
				"-c", "copy", out,
			},
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", in, "-t", fmt.Sprintf("%.3f", keep),
				"-c:v", "libx264", "-preset", "veryfast", "-an", out,
			},
		},
	}
}

// muxOp lays the music under the video, delaying it past any intro, and
// hard-trims the output to the exact final length so tolerance residue
// never reaches the deliverable.
func muxOp(video, audio, out string, audioOffset, finalLen float64) executor.Operation {
	argv := []string{
		"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
		"-i", video,
	}
	if audioOffset > 0 {
		argv = append(argv, "-itsoffset", fmt.Sprintf("%.3f", audioOffset))
	}
	argv = append(argv,
		"-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		"-t", fmt.Sprintf("%.3f", finalLen),
		out,
	)
	return executor.Operation{
		Name:       "synth-mux",
		InputPath:  video,
		OutputPath: out,
		Variants:   [][]string{argv},
	}
}

func finalizeOp(in, out string) executor.Operation {
	return executor.Operation{
		Name:       "synth-finalize",
		InputPath:  in,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", in, "-c", "copy", "-movflags", "+faststart", out,
			},
		},
	}
}

// Package enhance upscales whole videos through an external
// super-resolution tool. The fast path hands the tool the video directly;
// when it rejects the video output target the pipeline falls back to
// frame-by-frame processing with a concurrent worker pool and a persisted
// checkpoint, so an interrupted job resumes instead of starting over.
package enhance

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/naming"
	"github.com/juju486/video-cut-tool/internal/probe"
	"github.com/juju486/video-cut-tool/internal/state"
)

// Options configures one enhancement run.
type Options struct {
	Binary  string // Upscaler executable name or path.
	Model   string
	Factor  int
	Workers int
	Resume  bool // Reuse a prior partial scratch directory if present.
}

// Runner is the slice of the executor the pipeline needs.
type Runner interface {
	Run(ctx context.Context, op executor.Operation) error
	Capture(ctx context.Context, name string, argv []string) executor.CommandResult
}

// Pipeline drives enhancement for one video at a time.
type Pipeline struct {
	log    *logging.Logger
	runner Runner
	opts   Options

	// Swapped out in tests.
	probeInfo func(ctx context.Context, path string) (*probe.Result, error)
	upscale   func(ctx context.Context, in, out string) executor.CommandResult
}

// New builds a Pipeline on top of the given executor.
func New(log *logging.Logger, runner Runner, opts Options) *Pipeline {
	p := &Pipeline{
		log:       log,
		runner:    runner,
		opts:      opts,
		probeInfo: probe.Probe,
	}
	p.upscale = func(ctx context.Context, in, out string) executor.CommandResult {
		return runner.Capture(ctx, "enhance-frame", p.upscaleArgv(in, out))
	}
	return p
}

// Enhance upscales videoPath and returns the path of the finished output.
// The direct whole-video attempt runs first; only a recognized
// bad-output-path rejection escalates to the per-frame fallback, every
// other failure is terminal.
func (p *Pipeline) Enhance(ctx context.Context, videoPath string) (string, error) {
	outPath := naming.EnhancedFileName(videoPath, p.opts.Factor)

	p.log.Stage("enhance: %s (x%d, direct)", filepath.Base(videoPath), p.opts.Factor)
	res := p.runner.Capture(ctx, "enhance-direct", p.upscaleArgv(videoPath, outPath))
	if res.Err == nil {
		return outPath, nil
	}
	os.Remove(outPath)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	cat := ClassifyFailure(res.Stdout + "\n" + res.Stderr)
	if cat != CategoryBadOutputPath {
		return "", fmt.Errorf("direct upscale of %s failed (%s): %w",
			filepath.Base(videoPath), cat, res.Err)
	}

	p.log.Warn("Upscaler rejected video output for %s, falling back to per-frame processing",
		filepath.Base(videoPath))
	if err := p.frameFallback(ctx, videoPath, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// frameFallback is the resumable per-frame path: extract audio and frames,
// upscale frames through a worker pool with a persisted checkpoint, then
// reassemble at the source frame rate and mux the audio back. The scratch
// directory name is derived from the input path so a resumed run finds it.
func (p *Pipeline) frameFallback(ctx context.Context, videoPath, outPath string) error {
	scratch := scratchDir(videoPath, p.opts.Factor)
	framesDir := filepath.Join(scratch, "frames")
	upscaledDir := filepath.Join(scratch, "upscaled")
	audioPath := filepath.Join(scratch, "audio.m4a")
	checkpointPath := filepath.Join(scratch, state.CheckpointFile)

	info, err := p.probeInfo(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe %s: %w", filepath.Base(videoPath), err)
	}
	if info.Video == nil {
		return fmt.Errorf("%s has no video stream", filepath.Base(videoPath))
	}

	resuming := false
	if p.opts.Resume {
		if _, statErr := os.Stat(checkpointPath); statErr == nil {
			resuming = true
		}
	}

	if resuming {
		p.log.Info("Resuming enhancement of %s from existing checkpoint", filepath.Base(videoPath))
		if err := os.MkdirAll(upscaledDir, 0o755); err != nil {
			return fmt.Errorf("create scratch dir: %w", err)
		}
	} else {
		os.RemoveAll(scratch)
		for _, d := range []string{framesDir, upscaledDir} {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("create scratch dir: %w", err)
			}
		}
		if info.HasAudio() {
			if err := p.runner.Run(ctx, extractAudioOp(videoPath, audioPath)); err != nil {
				return fmt.Errorf("extract audio: %w", err)
			}
		}
		if err := p.runner.Run(ctx, extractFramesOp(videoPath, framesDir)); err != nil {
			return fmt.Errorf("extract frames: %w", err)
		}
	}

	cp, err := state.OpenCheckpoint(checkpointPath)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	frames, err := listFrames(framesDir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames extracted from %s", filepath.Base(videoPath))
	}

	var pending []string
	for _, f := range frames {
		if !cp.IsDone(f) {
			pending = append(pending, f)
		}
	}
	p.log.Info("Upscaling %d/%d frames with %d workers", len(pending), len(frames), p.opts.Workers)

	if err := p.runWorkers(ctx, framesDir, upscaledDir, pending, cp); err != nil {
		// Checkpoint stays on disk for a later resume.
		return err
	}

	frameRate := info.Video.AvgFrameRate
	if probe.ParseFrameRate(frameRate) <= 0 {
		return fmt.Errorf("%s: unusable frame rate %q", filepath.Base(videoPath), frameRate)
	}

	encoded := filepath.Join(scratch, "video.mp4")
	if err := p.runner.Run(ctx, assembleFramesOp(upscaledDir, encoded, frameRate)); err != nil {
		return fmt.Errorf("reassemble frames: %w", err)
	}

	if info.HasAudio() {
		if err := p.runner.Run(ctx, muxAudioOp(encoded, audioPath, outPath)); err != nil {
			return fmt.Errorf("mux audio: %w", err)
		}
	} else {
		if err := os.Rename(encoded, outPath); err != nil {
			return fmt.Errorf("place output: %w", err)
		}
	}

	os.RemoveAll(scratch)
	return nil
}

// runWorkers drains the pending frame list through a fixed pool. A failed
// upscale keeps the original frame so one bad frame never aborts the job;
// only checkpoint I/O errors and cancellation stop the pool.
func (p *Pipeline) runWorkers(ctx context.Context, framesDir, upscaledDir string, pending []string, cp *state.Checkpoint) error {
	workers := p.opts.Workers
	if workers < 1 {
		workers = 1
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("upscaling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan string)

	g.Go(func() error {
		defer close(jobs)
		for _, f := range pending {
			select {
			case jobs <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for name := range jobs {
				if err := p.processFrame(gctx, framesDir, upscaledDir, name, cp); err != nil {
					return err
				}
				bar.Add(1)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) processFrame(ctx context.Context, framesDir, upscaledDir, name string, cp *state.Checkpoint) error {
	in := filepath.Join(framesDir, name)
	out := filepath.Join(upscaledDir, name)

	res := p.upscale(ctx, in, out)
	if res.Err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Warn("Frame %s failed to upscale, keeping original", name)
		os.Remove(out)
		if err := copyFile(in, out); err != nil {
			return fmt.Errorf("copy original frame %s: %w", name, err)
		}
	}
	return cp.MarkDone(name)
}

func (p *Pipeline) upscaleArgv(in, out string) []string {
	return []string{
		p.opts.Binary,
		"-i", in,
		"-o", out,
		"-n", p.opts.Model,
		"-s", strconv.Itoa(p.opts.Factor),
	}
}

// scratchDir is deterministic per input and factor so resume can find a
// prior run's partial state.
func scratchDir(videoPath string, factor int) string {
	dir := filepath.Dir(videoPath)
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf(".%s_x%d_work", stem, factor))
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractAudioOp(src, out string) executor.Operation {
	return executor.Operation{
		Name:       "enhance-audio",
		InputPath:  src,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", src, "-vn", "-c:a", "copy", out,
			},
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", src, "-vn", "-c:a", "aac", out,
			},
		},
	}
}

func extractFramesOp(src, framesDir string) executor.Operation {
	pattern := filepath.Join(framesDir, "%08d.png")
	return executor.Operation{
		Name:      "enhance-frames",
		InputPath: src,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", src, pattern,
			},
		},
	}
}

func assembleFramesOp(upscaledDir, out, frameRate string) executor.Operation {
	pattern := filepath.Join(upscaledDir, "%08d.png")
	return executor.Operation{
		Name:       "enhance-assemble",
		InputPath:  pattern,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-framerate", frameRate, "-i", pattern,
				"-c:v", "libx264", "-pix_fmt", "yuv420p",
				"-movflags", "+faststart", out,
			},
		},
	}
}

// muxAudioOp marries the re-encoded video with the extracted audio. The
// streams can differ slightly in length after reassembly; -shortest keeps
// the container consistent.
func muxAudioOp(video, audio, out string) executor.Operation {
	return executor.Operation{
		Name:       "enhance-mux",
		InputPath:  video,
		OutputPath: out,
		Variants: [][]string{
			{
				"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
				"-i", video, "-i", audio,
				"-map", "0:v:0", "-map", "1:a:0",
				"-c:v", "copy", "-c:a", "aac",
				"-shortest", out,
			},
		},
	}
}

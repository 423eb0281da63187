package enhance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/probe"
	"github.com/juju486/video-cut-tool/internal/state"
)

const badPathStderr = "invalid outputpath extension, only png/jpg/webp supported"

type fakeEnhanceRunner struct {
	captureResults map[string]executor.CommandResult
	runOps         []executor.Operation
	runHook        func(op executor.Operation) error
}

func (f *fakeEnhanceRunner) Capture(ctx context.Context, name string, argv []string) executor.CommandResult {
	return f.captureResults[name]
}

func (f *fakeEnhanceRunner) Run(ctx context.Context, op executor.Operation) error {
	f.runOps = append(f.runOps, op)
	if f.runHook != nil {
		return f.runHook(op)
	}
	return nil
}

func (f *fakeEnhanceRunner) opNames() []string {
	out := make([]string, len(f.runOps))
	for i, op := range f.runOps {
		out[i] = op.Name
	}
	return out
}

// countingUpscaler succeeds for every frame except those listed in fail,
// and counts invocations.
type countingUpscaler struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (c *countingUpscaler) upscale(ctx context.Context, in, out string) executor.CommandResult {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.fail[filepath.Base(in)] {
		return executor.CommandResult{Err: errors.New("exit status 255"), Stderr: "decode image failed"}
	}
	return executor.CommandResult{}
}

func (c *countingUpscaler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestPipeline(t *testing.T, fr *fakeEnhanceRunner, opts Options) *Pipeline {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	p := New(log, fr, opts)
	p.probeInfo = func(ctx context.Context, path string) (*probe.Result, error) {
		return &probe.Result{
			Video: &probe.VideoStream{AvgFrameRate: "30000/1001"},
			Audio: []probe.AudioStream{{Codec: "aac"}},
		}, nil
	}
	return p
}

func defaultOpts() Options {
	return Options{
		Binary:  "realesrgan-ncnn-vulkan",
		Model:   "realesr-animevideov3",
		Factor:  4,
		Workers: 3,
	}
}

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("%08d.png", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("frame-"+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnhance_DirectPathSucceeds(t *testing.T) {
	fr := &fakeEnhanceRunner{
		captureResults: map[string]executor.CommandResult{"enhance-direct": {}},
	}
	p := newTestPipeline(t, fr, defaultOpts())

	video := filepath.Join(t.TempDir(), "clip.mp4")
	out, err := p.Enhance(context.Background(), video)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out) != "clip_x4.mp4" {
		t.Errorf("output name: got %s", filepath.Base(out))
	}
	if len(fr.runOps) != 0 {
		t.Errorf("direct success must not run fallback ops: %v", fr.opNames())
	}
}

func TestEnhance_UnrecognizedFailureIsTerminal(t *testing.T) {
	fr := &fakeEnhanceRunner{
		captureResults: map[string]executor.CommandResult{
			"enhance-direct": {Err: errors.New("exit status 1"), Stderr: "segmentation fault"},
		},
	}
	p := newTestPipeline(t, fr, defaultOpts())

	_, err := p.Enhance(context.Background(), filepath.Join(t.TempDir(), "clip.mp4"))
	if err == nil {
		t.Fatal("unrecognized failure must be terminal")
	}
	if len(fr.runOps) != 0 {
		t.Errorf("unrecognized failure must not trigger fallback: %v", fr.opNames())
	}
}

func TestEnhance_BadOutputPathFallsBackToFrames(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	scratch := scratchDir(video, 4)
	framesDir := filepath.Join(scratch, "frames")

	fr := &fakeEnhanceRunner{
		captureResults: map[string]executor.CommandResult{
			"enhance-direct": {Err: errors.New("exit status 255"), Stderr: badPathStderr},
		},
	}
	fr.runHook = func(op executor.Operation) error {
		if op.Name == "enhance-frames" {
			writeFrames(t, framesDir, 5)
		}
		return nil
	}

	up := &countingUpscaler{}
	p := newTestPipeline(t, fr, defaultOpts())
	p.upscale = up.upscale

	out, err := p.Enhance(context.Background(), video)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out) != "clip_x4.mp4" {
		t.Errorf("output name: got %s", filepath.Base(out))
	}
	if up.count() != 5 {
		t.Errorf("upscaler invocations: got %d, want 5", up.count())
	}

	want := []string{"enhance-audio", "enhance-frames", "enhance-assemble", "enhance-mux"}
	got := fr.opNames()
	if len(got) != len(want) {
		t.Fatalf("fallback ops: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d: got %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Error("scratch dir must be removed after success")
	}
}

// Interrupting after k of n frames and resuming must process exactly the
// remaining n−k frames, with extraction skipped entirely.
func TestEnhance_ResumeProcessesOnlyRemainingFrames(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	scratch := scratchDir(video, 4)
	writeFrames(t, filepath.Join(scratch, "frames"), 6)

	cp, err := state.OpenCheckpoint(filepath.Join(scratch, state.CheckpointFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, done := range []string{"00000001.png", "00000002.png"} {
		if err := cp.MarkDone(done); err != nil {
			t.Fatal(err)
		}
	}

	fr := &fakeEnhanceRunner{
		captureResults: map[string]executor.CommandResult{
			"enhance-direct": {Err: errors.New("exit status 255"), Stderr: badPathStderr},
		},
	}
	up := &countingUpscaler{}
	opts := defaultOpts()
	opts.Resume = true
	p := newTestPipeline(t, fr, opts)
	p.upscale = up.upscale

	if _, err := p.Enhance(context.Background(), video); err != nil {
		t.Fatal(err)
	}
	if up.count() != 4 {
		t.Errorf("resumed run processed %d frames, want the remaining 4", up.count())
	}
	for _, name := range fr.opNames() {
		if name == "enhance-frames" || name == "enhance-audio" {
			t.Errorf("resume must skip extraction, ran %s", name)
		}
	}
}

func TestEnhance_FailedFrameKeepsOriginal(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	scratch := scratchDir(video, 4)
	framesDir := filepath.Join(scratch, "frames")

	fr := &fakeEnhanceRunner{
		captureResults: map[string]executor.CommandResult{
			"enhance-direct": {Err: errors.New("exit status 255"), Stderr: badPathStderr},
		},
	}
	fr.runHook = func(op executor.Operation) error {
		switch op.Name {
		case "enhance-frames":
			writeFrames(t, framesDir, 3)
			return nil
		case "enhance-assemble":
			// Keep the scratch dir alive so its contents can be inspected.
			return executor.ErrExhausted
		default:
			return nil
		}
	}

	up := &countingUpscaler{fail: map[string]bool{"00000002.png": true}}
	p := newTestPipeline(t, fr, defaultOpts())
	p.upscale = up.upscale

	_, err := p.Enhance(context.Background(), video)
	if !errors.Is(err, executor.ErrExhausted) {
		t.Fatalf("want assemble failure surfaced, got %v", err)
	}

	// The bad frame was copied through unscaled and still checkpointed.
	data, err := os.ReadFile(filepath.Join(scratch, "upscaled", "00000002.png"))
	if err != nil {
		t.Fatalf("fallback copy missing: %v", err)
	}
	if string(data) != "frame-00000002.png" {
		t.Errorf("fallback copy content: %q", data)
	}
	cp, err := state.OpenCheckpoint(filepath.Join(scratch, state.CheckpointFile))
	if err != nil {
		t.Fatal(err)
	}
	if cp.Count() != 3 {
		t.Errorf("checkpoint count: got %d, want 3", cp.Count())
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		output string
		want   FailureCategory
	}{
		{badPathStderr, CategoryBadOutputPath},
		{"Invalid output path: clip.mp4", CategoryBadOutputPath},
		{"outputpath not supported for video", CategoryBadOutputPath},
		{"failed to load model realesr-animevideov3.param", CategoryModelMissing},
		{"models/realesr.param: no such file or directory", CategoryModelMissing},
		{"vkCreateInstance failed -9", CategoryGPUUnavailable},
		{"no gpu device found", CategoryGPUUnavailable},
		{"segmentation fault", CategoryUnknown},
		{"", CategoryUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyFailure(tt.output); got != tt.want {
			t.Errorf("ClassifyFailure(%q) = %s, want %s", tt.output, got, tt.want)
		}
	}
}

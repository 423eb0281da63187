package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju486/video-cut-tool/internal/config"
	"github.com/juju486/video-cut-tool/internal/executor"
	"github.com/juju486/video-cut-tool/internal/logging"
)

type fakeAssemblyRunner struct {
	ops     []executor.Operation
	failAt  string // op name that returns an error
	lastErr error
}

func (f *fakeAssemblyRunner) Run(ctx context.Context, op executor.Operation) error {
	f.ops = append(f.ops, op)
	if f.failAt != "" && op.Name == f.failAt {
		if f.lastErr == nil {
			f.lastErr = executor.ErrExhausted
		}
		return f.lastErr
	}
	return nil
}

func (f *fakeAssemblyRunner) names() []string {
	out := make([]string, len(f.ops))
	for i, op := range f.ops {
		out[i] = op.Name
	}
	return out
}

func newTestAssembler(t *testing.T, fr *fakeAssemblyRunner) *Assembler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return NewAssembler(log, fr)
}

func ratePlan() *Plan {
	return &Plan{
		Clips: []Clip{
			{Alias: "c001_1", Path: "/pool/c001_1.mp4", Duration: 20.0},
			{Alias: "c001_2", Path: "/pool/c001_2.mp4", Duration: 25.0},
		},
		Total:  45.0,
		Target: 42.0,
		Rate:   42.0 / 45.0,
	}
}

func TestAssemble_AllStagesInOrder(t *testing.T) {
	fr := &fakeAssemblyRunner{}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	err := a.Assemble(context.Background(), ratePlan(), nil, AudioTrack{Path: "song.mp3", Duration: 42.0}, out)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"synth-concat", "synth-rate", "synth-mux", "synth-finalize"}
	got := fr.names()
	if len(got) != len(want) {
		t.Fatalf("stages: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAssemble_RateStageSkippedAtUnity(t *testing.T) {
	fr := &fakeAssemblyRunner{}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	plan := ratePlan()
	plan.Rate = 1.0
	if err := a.Assemble(context.Background(), plan, nil, AudioTrack{Path: "song.mp3", Duration: 45.0}, out); err != nil {
		t.Fatal(err)
	}
	for _, name := range fr.names() {
		if name == "synth-rate" {
			t.Error("rate stage must be skipped at 1.0")
		}
	}
}

func TestAssemble_TrimStage(t *testing.T) {
	fr := &fakeAssemblyRunner{}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	plan := ratePlan()
	plan.Rate = 1.0
	plan.TrimLast = 3.0
	if err := a.Assemble(context.Background(), plan, nil, AudioTrack{Path: "song.mp3", Duration: 42.0}, out); err != nil {
		t.Fatal(err)
	}

	var trim *executor.Operation
	for i := range fr.ops {
		if fr.ops[i].Name == "synth-trim" {
			trim = &fr.ops[i]
		}
	}
	if trim == nil {
		t.Fatal("trim stage missing for a trimming plan")
	}
	// Total 45 minus trim 3 keeps 42.000 seconds.
	if !argvContains(trim.Variants[0], "-t", "42.000") {
		t.Errorf("trim argv lacks -t 42.000: %v", trim.Variants[0])
	}
}

func TestAssemble_IntroOffsetsAudio(t *testing.T) {
	fr := &fakeAssemblyRunner{}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	intro := []Clip{{Alias: "intro", Path: "/pool/intro.mp4", Duration: 2.5}}
	plan := ratePlan()
	plan.Rate = 1.0
	if err := a.Assemble(context.Background(), plan, intro, AudioTrack{Path: "song.mp3", Duration: 42.0}, out); err != nil {
		t.Fatal(err)
	}

	var mux *executor.Operation
	for i := range fr.ops {
		if fr.ops[i].Name == "synth-mux" {
			mux = &fr.ops[i]
		}
	}
	if mux == nil {
		t.Fatal("mux stage missing")
	}
	argv := mux.Variants[0]
	if !argvContains(argv, "-itsoffset", "2.500") {
		t.Errorf("audio not offset past intro: %v", argv)
	}
	// Final length is intro + audio.
	if !argvContains(argv, "-t", "44.500") {
		t.Errorf("final hard trim wrong: %v", argv)
	}
}

func TestAssemble_NoIntroNoOffset(t *testing.T) {
	fr := &fakeAssemblyRunner{}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	if err := a.Assemble(context.Background(), ratePlan(), nil, AudioTrack{Path: "song.mp3", Duration: 42.0}, out); err != nil {
		t.Fatal(err)
	}
	for _, op := range fr.ops {
		if op.Name != "synth-mux" {
			continue
		}
		for _, tok := range op.Variants[0] {
			if tok == "-itsoffset" {
				t.Error("no intro means no audio offset")
			}
		}
	}
}

func TestAssemble_StageFailureAborts(t *testing.T) {
	fr := &fakeAssemblyRunner{failAt: "synth-concat"}
	a := newTestAssembler(t, fr)
	out := filepath.Join(t.TempDir(), "video_0001.mp4")

	err := a.Assemble(context.Background(), ratePlan(), nil, AudioTrack{Path: "song.mp3", Duration: 42.0}, out)
	if !errors.Is(err, executor.ErrExhausted) {
		t.Fatalf("want wrapped executor error, got %v", err)
	}
	if len(fr.ops) != 1 {
		t.Errorf("no stage may run after a failed one, got %v", fr.names())
	}
}

func TestAssemble_ScratchCleanedUp(t *testing.T) {
	fr := &fakeAssemblyRunner{failAt: "synth-mux"}
	a := newTestAssembler(t, fr)
	dir := t.TempDir()
	out := filepath.Join(dir, "video_0001.mp4")

	if err := a.Assemble(context.Background(), ratePlan(), nil, AudioTrack{Path: "song.mp3", Duration: 42.0}, out); err == nil {
		t.Fatal("expected mux failure")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".work-") {
			t.Errorf("scratch dir left behind: %s", e.Name())
		}
	}
}

func TestWriteConcatList_Escaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	clips := []Clip{{Path: "/pool/it's.mp4"}}
	if err := writeConcatList(path, nil, clips); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "file '/pool/it'\\''s.mp4'\n"
	if string(data) != want {
		t.Errorf("list = %q, want %q", string(data), want)
	}
}

func argvContains(argv []string, flag, val string) bool {
	for i := 0; i+1 < len(argv); i++ {
		if argv[i] == flag && argv[i+1] == val {
			return true
		}
	}
	return false
}

// Package executor runs external media commands with layered resilience:
// ordered command variants, per-invocation timeouts, partial-output cleanup,
// a remux/re-encode quick fix for damaged inputs, and a per-operation log
// capturing every attempt's output for postmortem.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/juju486/video-cut-tool/internal/logging"
	"github.com/juju486/video-cut-tool/internal/probe"
)

// Sentinel errors surfaced to callers, who decide whether the work unit is
// skipped or the batch aborts.
var (
	ErrNoVariants  = errors.New("operation has no command variants")
	ErrExhausted   = errors.New("all command variants failed")
	ErrUnrepairable = errors.New("input could not be repaired")
)

// Operation is one logical external step: an ordered list of argv candidates
// that all produce OutputPath from InputPath. The first clean exit wins.
type Operation struct {
	Name       string        // Logical name; keys the per-operation log file.
	InputPath  string        // Consumed by every variant; target of the quick fix.
	OutputPath string        // Removed after every failed attempt.
	Variants   [][]string    // Ordered argv candidates.
	Timeout    time.Duration // Per-invocation bound; 0 uses the executor default.
}

// CommandResult is the captured outcome of one subprocess invocation.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// RunFunc executes one argv and returns its captured output. Swapped out in
// tests so nothing shells out to ffmpeg.
type RunFunc func(ctx context.Context, argv []string) CommandResult

// VerifyFunc reports whether a produced file is structurally sound.
type VerifyFunc func(ctx context.Context, path string) bool

// Executor runs Operations. It is stateless across operations and safe to
// use concurrently for independent inputs; variant attempts within one
// Run call are serialized because they share the operation's output path.
type Executor struct {
	log     *logging.Logger
	logDir  string // Per-operation attempt logs; empty disables capture.
	timeout time.Duration

	run    RunFunc
	verify VerifyFunc
}

// New builds an Executor with the real subprocess runner and ffprobe-based
// verification. logDir may be empty to disable attempt capture.
func New(log *logging.Logger, logDir string, timeout time.Duration) *Executor {
	return &Executor{
		log:     log,
		logDir:  logDir,
		timeout: timeout,
		run:     runCommand,
		verify:  probeVerify,
	}
}

// Run executes op's variants in order; the first clean exit wins. After
// exhausting all variants it repairs the input via [Executor.QuickFix] and
// replays the full variant list once against the repaired file. The
// returned error wraps ErrExhausted when every avenue failed.
func (e *Executor) Run(ctx context.Context, op Operation) error {
	if len(op.Variants) == 0 {
		return fmt.Errorf("%s: %w", op.Name, ErrNoVariants)
	}

	lastStderr, err := e.tryVariants(ctx, op, op.Variants)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op.Name, ctx.Err())
	}

	e.log.Warn("%s: all %d variants failed, attempting quick fix on %s",
		op.Name, len(op.Variants), op.InputPath)

	repaired, fixErr := e.QuickFix(ctx, op.InputPath)
	if fixErr != nil {
		return fmt.Errorf("%s: %w: %s", op.Name, ErrExhausted, tail(lastStderr, 5))
	}
	defer os.Remove(repaired)

	lastStderr, err = e.tryVariants(ctx, op, rewriteVariants(op.Variants, op.InputPath, repaired))
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %s", op.Name, ErrExhausted, tail(lastStderr, 5))
}

// tryVariants runs each variant once under the operation timeout, removing
// partial output after every failure. Returns the last captured stderr for
// diagnostics.
func (e *Executor) tryVariants(ctx context.Context, op Operation, variants [][]string) (string, error) {
	timeout := op.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	var lastStderr string
	for i, argv := range variants {
		if ctx.Err() != nil {
			return lastStderr, ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		res := e.run(attemptCtx, argv)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		cancel()

		e.appendOpLog(op.Name, argv, res, timedOut)

		if res.Err == nil && !timedOut {
			return "", nil
		}

		lastStderr = res.Stderr
		if op.OutputPath != "" {
			os.Remove(op.OutputPath)
		}
		if timedOut {
			e.log.Warn("%s: variant %d/%d timed out after %s", op.Name, i+1, len(variants), timeout)
		} else {
			e.log.Debug("%s: variant %d/%d failed: %v", op.Name, i+1, len(variants), res.Err)
		}
	}
	return lastStderr, ErrExhausted
}

// Capture runs a single argv under the executor's timeout and returns the
// raw result without variant fallback. Used by callers that parse the tool's
// diagnostic stream (e.g. scene detection) rather than consume an output
// file. Timeouts surface as context.DeadlineExceeded in the result.
func (e *Executor) Capture(ctx context.Context, name string, argv []string) CommandResult {
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	res := e.run(attemptCtx, argv)
	timedOut := attemptCtx.Err() == context.DeadlineExceeded
	cancel()

	e.appendOpLog(name, argv, res, timedOut)

	if timedOut && res.Err == nil {
		res.Err = context.DeadlineExceeded
	}
	return res
}

// QuickFix tries to salvage a damaged input: first a remux stream copy, then
// a minimal video-only re-encode. Each candidate is verified by probing; the
// first that probes clean is returned. The caller owns the returned file.
func (e *Executor) QuickFix(ctx context.Context, path string) (string, error) {
	fixed := fixedPath(path)

	candidates := [][]string{
		{"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
			"-err_detect", "ignore_err", "-i", path, "-c", "copy", fixed},
		{"ffmpeg", "-hide_banner", "-nostdin", "-y", "-loglevel", "error",
			"-err_detect", "ignore_err", "-i", path,
			"-an", "-c:v", "libx264", "-preset", "veryfast", fixed},
	}

	for _, argv := range candidates {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		res := e.run(attemptCtx, argv)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		cancel()

		e.appendOpLog("quickfix", argv, res, timedOut)

		if res.Err != nil || timedOut {
			os.Remove(fixed)
			continue
		}
		if e.verify(ctx, fixed) {
			return fixed, nil
		}
		os.Remove(fixed)
	}
	return "", fmt.Errorf("%w: %s", ErrUnrepairable, path)
}

// rewriteVariants substitutes the repaired input path into every variant.
func rewriteVariants(variants [][]string, from, to string) [][]string {
	out := make([][]string, len(variants))
	for i, argv := range variants {
		rewritten := make([]string, len(argv))
		for j, a := range argv {
			if a == from {
				rewritten[j] = to
			} else {
				rewritten[j] = a
			}
		}
		out[i] = rewritten
	}
	return out
}

// fixedPath derives the repaired-copy path next to the input.
func fixedPath(path string) string {
	ext := ".mp4"
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + "_fixed" + ext
	}
	return path + "_fixed" + ext
}

// tail returns the last n lines of s, joined for a one-line error message.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(no diagnostic output)"
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// --- default runner and verifier ---

// runCommand executes argv with both output streams captured. The context
// deadline kills the process; WaitDelay bounds the cleanup wait so a stuck
// process can't hang the pipeline.
func runCommand(ctx context.Context, argv []string) CommandResult {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 10 * time.Second

	err := cmd.Run()
	return CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}
}

// probeVerify accepts a file when ffprobe reports a positive duration.
func probeVerify(ctx context.Context, path string) bool {
	d, err := probe.Duration(ctx, path)
	return err == nil && d > 0
}

// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for ffmpeg, ffprobe, the codecs the
// pipelines encode with, and the external upscaler.
package check

import (
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/juju486/video-cut-tool/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFfmpegNotFound   = errors.New("ffmpeg not found on PATH")
	ErrFfprobeNotFound  = errors.New("ffprobe not found on PATH")
	ErrX264EncodeFailed = errors.New("libx264 test encode failed")
	ErrUpscalerNotFound = errors.New("upscaler binary not found on PATH")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints availability of
// ffmpeg, ffprobe, the x264/AAC encoders, and the configured upscaler.
// Informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkFfmpeg(log)
	checkFfprobe(log)
	checkX264(log)
	checkAAC(log)
	checkUpscaler(cfg, log)
	checkScratch(log)
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(log Logger) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		log.Error("ffmpeg not found")
		return
	}
	out, err := exec.Command("ffmpeg", "-version").Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return
	}
	log.Success("ffmpeg: %s", firstLine(string(out)))
}

func checkFfprobe(log Logger) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Error("ffprobe not found")
		return
	}
	out, err := exec.Command("ffprobe", "-version").Output()
	if err != nil {
		log.Warn("ffprobe found but -version failed: %v", err)
		return
	}
	log.Success("ffprobe: %s", firstLine(string(out)))
}

// checkX264 runs a minimal libx264 encode; every cut, compat re-encode and
// rate change depends on it.
func checkX264(log Logger) {
	log.Info("Testing x264 encoder...")
	if runSilent("ffmpeg", x264TestArgs()...) {
		log.Success("libx264 works")
	} else {
		log.Error("libx264 test encode failed")
	}
}

// checkAAC runs a minimal AAC encode to verify the audio encoder works.
func checkAAC(log Logger) {
	log.Info("Testing AAC encoder...")
	if runSilent("ffmpeg",
		"-hide_banner", "-nostdin",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", "aac", "-f", "null", "-",
	) {
		log.Success("AAC encoder works")
	} else {
		log.Error("AAC encoder test failed")
	}
}

// checkUpscaler verifies the configured super-resolution binary exists.
// Enhancement is the only pipeline that needs it, so absence is a warning.
func checkUpscaler(cfg *config.Config, log Logger) {
	path, err := exec.LookPath(cfg.UpscaleBinary)
	if err != nil {
		log.Warn("Upscaler %s not found (only needed for 'enhance')", cfg.UpscaleBinary)
		return
	}
	log.Success("Upscaler: %s", path)
}

// CheckDeps is the pre-run validation gate. ffmpeg and ffprobe are always
// required; the x264 test encode guards split and synth, and the upscaler
// binary is required only for enhance. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrFfmpegNotFound
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return ErrFfprobeNotFound
	}
	if !runSilent("ffmpeg", x264TestArgs()...) {
		return ErrX264EncodeFailed
	}
	if cfg.Command == config.CommandEnhance {
		if _, err := exec.LookPath(cfg.UpscaleBinary); err != nil {
			return ErrUpscalerNotFound
		}
	}
	return nil
}

// checkScratch verifies the temp directory used for intermediates is
// writable.
func checkScratch(log Logger) {
	f, err := os.CreateTemp("", "videocut-check-*")
	if err != nil {
		log.Error("Scratch space not writable: %v", err)
		return
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	log.Success("Scratch space writable: %s", os.TempDir())
}

// --- internal helpers ---

// x264TestArgs returns the ffmpeg arguments for a minimal libx264 test
// encode. Shared by checkX264 and CheckDeps to avoid duplicating the list.
func x264TestArgs() []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=256x256:d=0.1",
		"-c:v", "libx264",
		"-f", "null", "-",
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both output streams are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

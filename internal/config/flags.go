package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into segmentation, synthesis, enhancement, executor,
// and display. Negated flags (e.g. --no-intro) are applied after Parse so
// Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseFlags parses os.Args into cfg. On --help or --version it prints and
// exits. On error it returns non-nil (e.g. unknown flag, bad positional
// args). version is injected by the caller (set at build time).
func ParseFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("videocut", flag.ContinueOnError)
	fs.Usage = func() { printUsage() }

	// Negated/override flags: captured as bools and applied to cfg after
	// Parse, so that defaults from DefaultConfig() hold unless the user
	// passes the flag.
	var negated negatedFlags

	defineSplitFlags(fs, cfg)
	defineSynthFlags(fs, cfg, &negated)
	defineEnhanceFlags(fs, cfg)
	defineExecutorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, &negated)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage()
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "videocut v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse. These
// either invert a default (e.g. noIntro -> UseIntro=false) or trigger exit
// (showHelp, showVersion).
type negatedFlags struct {
	noIntro     bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineSplitFlags registers -t/--threshold and -f/--force.
func defineSplitFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Float64Var(&cfg.SceneThreshold, "threshold", cfg.SceneThreshold, "Scene-change score threshold (0..1)")
	fs.Float64Var(&cfg.SceneThreshold, "t", cfg.SceneThreshold, "Same as --threshold")
	fs.BoolVar(&cfg.Force, "force", false, "Re-split sources already present in the clip pool")
	fs.BoolVar(&cfg.Force, "f", false, "Same as --force")
}

// defineSynthFlags registers -n/--count, the selection bounds, the music
// duration filter, seed, and --no-intro.
func defineSynthFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Deliverables to assemble this batch")
	fs.IntVar(&cfg.Count, "n", cfg.Count, "Same as --count")
	fs.Float64Var(&cfg.MinClip, "min-clip", cfg.MinClip, "Shortest usable segment (seconds)")
	fs.Float64Var(&cfg.MaxClip, "max-clip", cfg.MaxClip, "Longest usable segment (seconds)")
	fs.Float64Var(&cfg.MinRate, "min-rate", cfg.MinRate, "Lowest playback-rate multiplier")
	fs.Float64Var(&cfg.MaxRate, "max-rate", cfg.MaxRate, "Highest playback-rate multiplier")
	fs.Float64Var(&cfg.MaxAVDiff, "max-av-diff", cfg.MaxAVDiff, "Accepted |video-audio| duration gap (seconds)")
	fs.Float64Var(&cfg.ShorterMaxDiff, "shorter-max", cfg.ShorterMaxDiff, "Largest correctable shortfall (seconds)")
	fs.Float64Var(&cfg.LongerMaxDiff, "longer-max", cfg.LongerMaxDiff, "Largest correctable overshoot (seconds)")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Selection attempts per deliverable")
	fs.Float64Var(&cfg.MusicMinLen, "music-min", 0, "Only use audio at least this long (seconds)")
	fs.Float64Var(&cfg.MusicMaxLen, "music-max", 0, "Only use audio at most this long (seconds)")
	fs.Int64Var(&cfg.RandomSeed, "seed", 0, "Fixed selection seed (0 = time-based)")
	fs.BoolVar(&n.noIntro, "no-intro", false, "Do not prepend intro segments from open/")
}

// defineEnhanceFlags registers -s/--scale, --model, -j/--workers, --resume.
func defineEnhanceFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.UpscaleFactor, "scale", cfg.UpscaleFactor, "Upscale factor: 2, 3 or 4")
	fs.IntVar(&cfg.UpscaleFactor, "s", cfg.UpscaleFactor, "Same as --scale")
	fs.StringVar(&cfg.UpscaleModel, "model", cfg.UpscaleModel, "Super-resolution model name")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent frame workers")
	fs.IntVar(&cfg.Workers, "j", cfg.Workers, "Same as --workers")
	fs.BoolVar(&cfg.Resume, "resume", false, "Resume a previously interrupted enhancement")
}

// defineExecutorFlags registers --timeout and --dry-run.
func defineExecutorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.OpTimeout, "timeout", cfg.OpTimeout, "Per-invocation subprocess timeout")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not run ffmpeg")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
}

// defineDisplayFlags registers --color, --no-color, verbose, --check, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noIntro {
		cfg.UseIntro = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs consumes the command word and its argument:
//
//	videocut split <workdir>
//	videocut synth <workdir>
//	videocut enhance <video-or-dir>
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if len(args) == 0 {
		return nil // --check runs without a command
	}

	switch strings.ToLower(args[0]) {
	case string(CommandSplit):
		cfg.Command = CommandSplit
	case string(CommandSynth):
		cfg.Command = CommandSynth
	case string(CommandEnhance):
		cfg.Command = CommandEnhance
	default:
		return fmt.Errorf("unknown command %q (use 'split', 'synth' or 'enhance')", args[0])
	}

	if len(args) < 2 {
		return fmt.Errorf("%s: missing argument", args[0])
	}
	if len(args) > 2 {
		return fmt.Errorf("%s: unexpected extra arguments: %s", args[0], strings.Join(args[2:], " "))
	}

	if cfg.Command == CommandEnhance {
		cfg.Target = NormalizeDirArg(args[1])
	} else {
		cfg.WorkDir = NormalizeDirArg(args[1])
	}
	return nil
}

// printUsage writes the aligned help text to stderr.
func printUsage() {
	const col1 = 28
	lines := []struct{ flags, desc string }{
		{"Usage: videocut <command> <path> [options]", ""},
		{"", ""},
		{"Commands", ""},
		{"  split <workdir>", "Detect scene cuts in input/ and fill the clip pool"},
		{"  synth <workdir>", "Assemble deliverables from clips/ and music/"},
		{"  enhance <video|dir>", "Upscale footage via super-resolution"},
		{"", ""},
		{"Segmentation", ""},
		{"  -t, --threshold <0..1>", "Scene-change score threshold (default: 0.35)"},
		{"  -f, --force", "Re-split sources already in the pool"},
		{"", ""},
		{"Synthesis", ""},
		{"  -n, --count <n>", "Deliverables to assemble (default: 1)"},
		{"  --min-clip / --max-clip", "Usable segment duration bounds (s)"},
		{"  --min-rate / --max-rate", "Playback-rate multiplier bounds"},
		{"  --max-av-diff <s>", "Accepted A/V duration gap (default: 0.2)"},
		{"  --shorter-max <s>", "Largest correctable shortfall (default: 5)"},
		{"  --longer-max <s>", "Largest correctable overshoot (default: 5)"},
		{"  --max-attempts <n>", "Selection attempts per deliverable (default: 100)"},
		{"  --music-min / --music-max", "Audio duration pre-filter (s)"},
		{"  --no-intro", "Do not prepend intro segments from open/"},
		{"  --seed <n>", "Fixed selection seed for reproducible batches"},
		{"", ""},
		{"Enhancement", ""},
		{"  -s, --scale <2|3|4>", "Upscale factor (default: 4)"},
		{"  --model <name>", "Super-resolution model (default: realesr-animevideov3)"},
		{"  -j, --workers <n>", "Concurrent frame workers (default: 2)"},
		{"  --resume", "Resume an interrupted enhancement"},
		{"", ""},
		{"Execution", ""},
		{"  --timeout <dur>", "Per-invocation subprocess timeout (default: 5m)"},
		{"  -d, --dry-run", "Preview only; do not run ffmpeg"},
		{"", ""},
		{"Display", ""},
		{"  --color / --no-color", "Force / disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, ffprobe, upscaler)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

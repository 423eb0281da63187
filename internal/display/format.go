// Package display holds the startup banner and output formatting helpers.
package display

import (
	"fmt"
)

// FormatBytes returns a human-readable size (B, KiB, MiB, GiB, TiB, PiB).
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	suffixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	if exp >= len(suffixes) {
		exp = len(suffixes) - 1
		div = 1
		for i := 0; i <= exp; i++ {
			div *= unit
		}
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), suffixes[exp])
}

// FormatSeconds renders a duration in seconds as "m:ss.t" (e.g. "1:05.3"),
// or "s.t s" below one minute.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	m := int(seconds) / 60
	rest := seconds - float64(m)*60
	return fmt.Sprintf("%d:%04.1f", m, rest)
}

// FormatRate renders a playback-rate multiplier (e.g. "1.050x").
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.3fx", rate)
}

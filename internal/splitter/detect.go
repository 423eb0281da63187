package splitter

// Scene-cut detection rides on ffmpeg's select/showinfo filters: frames
// whose scene-change score exceeds the threshold pass the select filter and
// showinfo prints one diagnostic line per surviving frame. The timestamps
// on those lines are the cut boundaries.

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// rePtsTime pulls the presentation timestamp out of a showinfo line, e.g.
// "[Parsed_showinfo_1 @ 0x...] n: 0 pts: 126126 pts_time:1.4014 ...".
var rePtsTime = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// detect runs the detection filter chain and parses boundaries from the
// captured diagnostic stream.
func (s *Splitter) detect(ctx context.Context, path string) ([]float64, error) {
	argv := []string{
		"ffmpeg", "-hide_banner", "-nostdin",
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", s.threshold),
		"-an", "-f", "null", "-",
	}
	res := s.runner.Capture(ctx, "detect", argv)
	if res.Err != nil {
		return nil, fmt.Errorf("scene detection: %w", res.Err)
	}
	return ParseShowinfo(res.Stderr), nil
}

// ParseShowinfo extracts every pts_time value from ffmpeg's showinfo
// diagnostic output, in stream order. Exported for testing without ffmpeg.
func ParseShowinfo(diag string) []float64 {
	matches := rePtsTime.FindAllStringSubmatch(diag, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NormalizeBoundaries enforces the boundary invariants: the sequence starts
// at 0 (prepended when detection's first cut is later) and is monotonically
// non-decreasing (out-of-order stragglers are dropped).
func NormalizeBoundaries(boundaries []float64) []float64 {
	out := make([]float64, 0, len(boundaries)+1)
	out = append(out, 0)
	prev := 0.0
	for _, b := range boundaries {
		if b < prev {
			continue
		}
		if b == 0 {
			continue // already have the leading zero
		}
		out = append(out, b)
		prev = b
	}
	return out
}

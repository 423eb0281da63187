// Package probe wraps a single ffprobe JSON call and exposes the metadata
// the pipelines care about: duration, dimensions, frame rate, and stream
// presence.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe runs a single ffprobe JSON call against path and returns the
// parsed result.
func Probe(ctx context.Context, path string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseJSON(out)
}

// Duration is a convenience wrapper returning only the container duration
// in seconds. Zero or negative durations are reported as errors because
// every caller treats them as unusable input.
func Duration(ctx context.Context, path string) (float64, error) {
	r, err := Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if r.Format.Duration <= 0 {
		return 0, fmt.Errorf("ffprobe %q: no usable duration", path)
	}
	return r.Format.Duration, nil
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index         int            `json:"index"`
	CodecName     string         `json:"codec_name"`
	CodecType     string         `json:"codec_type"`
	PixFmt        string         `json:"pix_fmt"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	BitRate       string         `json:"bit_rate"`
	Duration      string         `json:"duration"`
	AvgFrameRate  string         `json:"avg_frame_rate"`
	RFrameRate    string         `json:"r_frame_rate"`
	NbFrames      string         `json:"nb_frames"`
	Channels      int            `json:"channels"`
	SampleRate    string         `json:"sample_rate"`
	Disposition   map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *Result {
	r := &Result{
		Format: convertFormat(&raw.Format),
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			vs := convertVideo(s)
			if !vs.IsAttachedPic && r.Video == nil {
				r.Video = &vs
			}
		case "audio":
			r.Audio = append(r.Audio, convertAudio(s))
		}
	}
	return r
}

func convertFormat(f *ffprobeFormat) FormatInfo {
	return FormatInfo{
		Filename:   f.Filename,
		NbStreams:  f.NbStreams,
		FormatName: f.FormatName,
		Duration:   parseFloat(f.Duration),
		Size:       parseInt64(f.Size),
		BitRate:    parseInt64(f.BitRate),
	}
}

func convertVideo(s *ffprobeStream) VideoStream {
	return VideoStream{
		Index:         s.Index,
		Codec:         s.CodecName,
		PixFmt:        s.PixFmt,
		Width:         s.Width,
		Height:        s.Height,
		BitRate:       parseInt64(s.BitRate),
		Duration:      parseFloat(s.Duration),
		AvgFrameRate:  s.AvgFrameRate,
		FrameCount:    parseInt64(s.NbFrames),
		IsAttachedPic: s.Disposition["attached_pic"] == 1,
	}
}

func convertAudio(s *ffprobeStream) AudioStream {
	return AudioStream{
		Index:      s.Index,
		Codec:      s.CodecName,
		Channels:   s.Channels,
		SampleRate: parseInt(s.SampleRate),
		BitRate:    parseInt64(s.BitRate),
		Duration:   parseFloat(s.Duration),
	}
}

// ParseFrameRate parses an ffprobe rational like "30000/1001" into a float.
// Returns 0 for empty, malformed, or zero-denominator input.
func ParseFrameRate(rate string) float64 {
	rate = strings.TrimSpace(rate)
	if rate == "" || rate == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(rate, "/")
	n := parseFloat(num)
	if !found {
		return n
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	n, _ := strconv.Atoi(s)
	return n
}

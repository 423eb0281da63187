package probe

import "fmt"

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	NbStreams  int
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	PixFmt        string
	Width         int
	Height        int
	BitRate       int64
	Duration      float64
	AvgFrameRate  string
	FrameCount    int64
	IsAttachedPic bool
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index      int
	Codec      string
	Channels   int
	SampleRate int
	BitRate    int64
	Duration   float64
}

// Result is the fully parsed output of a single ffprobe JSON call.
// Video is the first non-attached-pic video stream (nil if none).
type Result struct {
	Format FormatInfo
	Video  *VideoStream
	Audio  []AudioStream
}

// Duration returns the best-known duration in seconds: the container value,
// falling back to the primary video stream when the container is silent.
func (r *Result) Duration() float64 {
	if r.Format.Duration > 0 {
		return r.Format.Duration
	}
	if r.Video != nil {
		return r.Video.Duration
	}
	return 0
}

// FPS returns the primary video stream's average frame rate, or 0 when
// there is no video stream or the rate is unparseable.
func (r *Result) FPS() float64 {
	if r.Video == nil {
		return 0
	}
	return ParseFrameRate(r.Video.AvgFrameRate)
}

// HasAudio reports whether at least one audio stream is present.
func (r *Result) HasAudio() bool { return len(r.Audio) > 0 }

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (r *Result) Resolution() string {
	if r.Video == nil || r.Video.Width <= 0 || r.Video.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", r.Video.Width, r.Video.Height)
}

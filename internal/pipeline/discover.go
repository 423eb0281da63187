package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".ts":   true,
	".mpg":  true,
	".mpeg": true,
}

// Supported audio file extensions for the music pool.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// DiscoverMedia lists video files directly inside dir, sorted
// lexicographically for deterministic processing order. Subdirectories are
// not entered: the processed/ and failure buckets live below the input dir
// and must never be re-discovered.
func DiscoverMedia(dir string) ([]string, error) {
	return discover(dir, mediaExtensions)
}

// DiscoverAudio lists audio files directly inside dir, sorted. The
// filtered/ subfolder is excluded for the same reason as above.
func DiscoverAudio(dir string) ([]string, error) {
	return discover(dir, audioExtensions)
}

func discover(dir string, exts map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

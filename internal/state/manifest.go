package state

import "time"

// ManifestEntry records how one deliverable was assembled: which pool
// segments in which order, the audio track, and the adjustment applied.
type ManifestEntry struct {
	Output    string    `json:"output"`
	Segments  []string  `json:"segments"` // ordered segment aliases
	Audio     string    `json:"audio"`
	Rate      float64   `json:"rate"`
	TrimLast  float64   `json:"trim_last,omitempty"`
	ClipsDir  string    `json:"clips_dir"`
	MusicDir  string    `json:"music_dir"`
	CreatedAt time.Time `json:"created_at"`
}

// Manifest is the per-batch synthesis log written into the batch output
// directory. BatchID ties log lines, directory name, and manifest together.
type Manifest struct {
	BatchID   string          `json:"batch_id"`
	StartedAt time.Time       `json:"started_at"`
	Entries   []ManifestEntry `json:"entries"`
}

// WriteManifest persists m to path (whole-file replace).
func WriteManifest(path string, m *Manifest) error {
	return writeJSON(path, m)
}

// ReadManifest loads a previously written manifest.
func ReadManifest(path string) (*Manifest, error) {
	var m Manifest
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

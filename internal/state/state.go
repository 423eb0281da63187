// Package state isolates every piece of persisted whole-file JSON state:
// the alias map, the cross-batch audio/output indexes, the per-batch
// synthesis manifest, and the enhancement checkpoint. All writes go through
// an atomic temp-file rename so a crash never leaves a half-written file.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names inside a working directory.
const (
	AliasMapFile   = "alias_map.json"
	BatchStateFile = "batch_state.json"
	ManifestFile   = "synthesis.json"
	CheckpointFile = "checkpoint.json"
)

// readJSON loads path into v. Missing files return fs.ErrNotExist untouched
// so callers can treat them as empty state.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON marshals v and atomically replaces path.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// notExist reports whether err means the state file simply isn't there yet.
func notExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

package state

import "sync"

// Checkpoint is the persisted record of completed frames for one
// enhancement job. Entries are append-only and idempotent: marking a frame
// done twice is harmless. MarkDone serializes the read-modify-write cycle
// so overlapping worker completions never lose updates.
type Checkpoint struct {
	mu   sync.Mutex
	path string
	done map[string]bool
}

// OpenCheckpoint loads the checkpoint at path, starting empty when the file
// doesn't exist yet.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	c := &Checkpoint{path: path, done: map[string]bool{}}
	err := readJSON(path, &c.done)
	if err != nil && !notExist(err) {
		return nil, err
	}
	return c, nil
}

// IsDone reports whether frame has already been completed.
func (c *Checkpoint) IsDone(frame string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done[frame]
}

// MarkDone records frame as completed and persists the whole map before
// returning. Safe for concurrent use by enhancement workers.
func (c *Checkpoint) MarkDone(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done[frame] {
		return nil
	}
	c.done[frame] = true
	return writeJSON(c.path, c.done)
}

// Count returns the number of completed frames.
func (c *Checkpoint) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}

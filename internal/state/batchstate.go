package state

// BatchState carries the two indexes that must survive across synthesis
// runs: which audio track was consumed last (round-robin position) and the
// highest deliverable index handed out (output name collisions). Read at
// batch start, written back at batch end; no concurrent writers exist.
type BatchState struct {
	LastAudioIndex  int `json:"last_audio_index"`
	LastOutputIndex int `json:"last_output_index"`
}

// LoadBatchState reads the persisted batch state, returning zero state when
// no file exists yet.
func LoadBatchState(path string) (BatchState, error) {
	var s BatchState
	err := readJSON(path, &s)
	if err != nil && !notExist(err) {
		return BatchState{}, err
	}
	return s, nil
}

// SaveBatchState persists s to path.
func SaveBatchState(path string, s BatchState) error {
	return writeJSON(path, &s)
}

package pipeline

// SplitStats tracks aggregate counters across a segmentation run.
type SplitStats struct {
	Total        int
	Current      int
	Split        int
	Skipped      int
	DetectFailed int
	SplitFailed  int
	Segments     int
}

// Failed returns the number of sources bucketed as unusable.
func (s *SplitStats) Failed() int {
	return s.DetectFailed + s.SplitFailed
}

// SynthStats tracks aggregate counters across a synthesis run.
type SynthStats struct {
	Requested int
	Assembled int
	Skipped   int
	Attempts  int
}

// EnhanceStats tracks aggregate counters across an enhancement run.
type EnhanceStats struct {
	Total    int
	Current  int
	Enhanced int
	Skipped  int
	Failed   int
}

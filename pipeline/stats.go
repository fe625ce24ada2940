package pipeline

import (
	"sync"
	"time"
)

// StatsSnapshot is the plain counters view handed to status readers and
// the final summary. It carries no lock and copies freely.
type StatsSnapshot struct {
	Total           int     `json:"total"`
	Processed       int     `json:"processed"`
	Success         int     `json:"success"`
	Errors          int     `json:"errors"`
	WithEmbedding   int     `json:"with_embedding"`
	WithTags        int     `json:"with_tags"`
	SkippedExisting int     `json:"skipped_existing"`
	ProcessingTime  float64 `json:"processing_time"` // seconds, summed
}

// Stats owns the run counters. The worker writes them; status readers
// take snapshots concurrently.
type Stats struct {
	mu       sync.Mutex
	counters StatsSnapshot
	started  time.Time
}

func (s *Stats) Begin(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = StatsSnapshot{Total: total}
	s.started = time.Now()
}

func (s *Stats) Skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.SkippedExisting++
}

func (s *Stats) RecordSuccess(withEmbedding, withTags bool, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Processed++
	s.counters.Success++
	if withEmbedding {
		s.counters.WithEmbedding++
	}
	if withTags {
		s.counters.WithTags++
	}
	s.counters.ProcessingTime += seconds
}

func (s *Stats) RecordError(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Processed++
	s.counters.Errors++
	s.counters.ProcessingTime += seconds
}

// Snapshot returns a copy safe to serialize while the worker keeps
// counting.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

package orchestrator

import (
	"sync"
	"time"
)

// StatsSnapshot is a point-in-time view of orchestration counters since
// process start. Counters live in memory only; there is no persistence of
// historical requests.
type StatsSnapshot struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	InFlight      int64            `json:"in_flight"`
}

type statsTracker struct {
	mu            sync.Mutex
	total         int64
	byStatus      map[string]int64
	totalDuration time.Duration
	inFlight      int64
}

func newStatsTracker() *statsTracker {
	return &statsTracker{byStatus: make(map[string]int64)}
}

func (s *statsTracker) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
}

// finish records one completed orchestration. status is one of the three
// outcome values, or "error" when the shared log failed mid-request.
func (s *statsTracker) finish(status string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.total++
	s.byStatus[status]++
	s.totalDuration += d
}

func (s *statsTracker) snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Total:    s.total,
		ByStatus: make(map[string]int64, len(s.byStatus)),
		InFlight: s.inFlight,
	}
	for status, n := range s.byStatus {
		snap.ByStatus[status] = n
	}
	if s.total > 0 {
		snap.AvgDurationMS = float64(s.totalDuration.Milliseconds()) / float64(s.total)
	}
	return snap
}

package monitor

import (
	"sync/atomic"
	"time"
)

// Stats tracks run progress with atomic counters so workers can update them
// without coordination.
type Stats struct {
	Total         int64
	Processed     int64
	Passed        int64
	Failed        int64
	NetworkErrors int64
	SitesRetested int64
	StartTime     time.Time
}

func NewStats(total int64) *Stats {
	return &Stats{
		Total:     total,
		StartTime: time.Now(),
	}
}

func (s *Stats) IncrementProcessed() {
	atomic.AddInt64(&s.Processed, 1)
}

// Record tallies one final (post-retry) result.
func (s *Stats) Record(r Result) {
	if r.Succeeded {
		atomic.AddInt64(&s.Passed, 1)
		return
	}
	atomic.AddInt64(&s.Failed, 1)
	if r.NetworkError {
		atomic.AddInt64(&s.NetworkErrors, 1)
	}
}

func (s *Stats) IncrementSitesRetested() {
	atomic.AddInt64(&s.SitesRetested, 1)
}

func (s *Stats) GetTotal() int64 {
	return atomic.LoadInt64(&s.Total)
}

func (s *Stats) GetProcessed() int64 {
	return atomic.LoadInt64(&s.Processed)
}

func (s *Stats) GetPassed() int64 {
	return atomic.LoadInt64(&s.Passed)
}

func (s *Stats) GetFailed() int64 {
	return atomic.LoadInt64(&s.Failed)
}

func (s *Stats) GetNetworkErrors() int64 {
	return atomic.LoadInt64(&s.NetworkErrors)
}

func (s *Stats) GetSitesRetested() int64 {
	return atomic.LoadInt64(&s.SitesRetested)
}

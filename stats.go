package dbal

import (
	"sync/atomic"
	"time"
)

// QueryStats accumulates counters for every statement a Connection runs.
// Reads are lock-free; each field is updated independently so a reader can
// observe a torn snapshot under concurrent writers, which is acceptable for
// monitoring counters.
type QueryStats struct {
	totalQueries atomic.Int64
	totalExecs   atomic.Int64
	totalErrors  atomic.Int64
	slowQueries  atomic.Int64
	totalNanos   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of QueryStats's counters.
type StatsSnapshot struct {
	TotalQueries int64
	TotalExecs   int64
	TotalErrors  int64
	SlowQueries  int64
	TotalTime    time.Duration
}

// SlowQueryThreshold is the duration past which a statement is counted as
// slow. Slow statements are only counted, not logged.
const SlowQueryThreshold = 200 * time.Millisecond

func (s *QueryStats) recordQuery(d time.Duration, err error) {
	s.totalQueries.Add(1)
	s.totalNanos.Add(int64(d))
	if err != nil {
		s.totalErrors.Add(1)
	}
	if d >= SlowQueryThreshold {
		s.slowQueries.Add(1)
	}
}

func (s *QueryStats) recordExec(d time.Duration, err error) {
	s.totalExecs.Add(1)
	s.totalNanos.Add(int64(d))
	if err != nil {
		s.totalErrors.Add(1)
	}
	if d >= SlowQueryThreshold {
		s.slowQueries.Add(1)
	}
}

// Snapshot returns the current counter values.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries: s.totalQueries.Load(),
		TotalExecs:   s.totalExecs.Load(),
		TotalErrors:  s.totalErrors.Load(),
		SlowQueries:  s.slowQueries.Load(),
		TotalTime:    time.Duration(s.totalNanos.Load()),
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	s.totalQueries.Store(0)
	s.totalExecs.Store(0)
	s.totalErrors.Store(0)
	s.slowQueries.Store(0)
	s.totalNanos.Store(0)
}

package metrics

import (
	"time"

	"go.uber.org/atomic"
)

// DatabaseMetrics defines database metrics over the entire runtime of the node.
type DatabaseMetrics struct {
	// The total number of compactions.
	CompactionCount atomic.Uint32
	// Whether compaction is running or not.
	CompactionRunning atomic.Bool
	// The duration of the last finished compaction.
	LastCompactionDuration atomic.Duration

	compactionStart atomic.Time
}

// CompactionStarted records the start of a compaction.
func (m *DatabaseMetrics) CompactionStarted(now time.Time) {
	m.CompactionRunning.Store(true)
	m.CompactionCount.Inc()
	m.compactionStart.Store(now)
}

// CompactionFinished records the end of a compaction and returns its duration.
func (m *DatabaseMetrics) CompactionFinished(now time.Time) time.Duration {
	m.CompactionRunning.Store(false)

	start := m.compactionStart.Load()
	if start.IsZero() {
		return 0
	}
	duration := now.Sub(start)
	m.LastCompactionDuration.Store(duration)
	return duration
}

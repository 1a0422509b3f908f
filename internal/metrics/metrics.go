// Package metrics provides in-process counters for the TAQ fetch layer.
// Counters are cheap atomics suitable for the synchronous fetch path; a
// snapshot can be logged with a range summary or exposed by callers.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Registry accumulates fetch statistics for the lifetime of a fetcher.
type Registry struct {
	queriesIssued int64
	rowsFetched   int64
	daysWithData  int64
	daysSkipped   int64

	mu       sync.Mutex
	absences map[string]int64
	started  time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		absences: make(map[string]int64),
		started:  time.Now().UTC(),
	}
}

// RecordQuery counts one executed query and the rows it returned.
func (r *Registry) RecordQuery(rows int) {
	if r == nil {
		return
	}
	atomic.AddInt64(&r.queriesIssued, 1)
	atomic.AddInt64(&r.rowsFetched, int64(rows))
	if rows > 0 {
		atomic.AddInt64(&r.daysWithData, 1)
	}
}

// RecordSkip counts a day (or whole request) that degraded to absence,
// bucketed by reason.
func (r *Registry) RecordSkip(reason string) {
	if r == nil {
		return
	}
	atomic.AddInt64(&r.daysSkipped, 1)
	r.mu.Lock()
	r.absences[reason]++
	r.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	QueriesIssued int64            `json:"queries_issued"`
	RowsFetched   int64            `json:"rows_fetched"`
	DaysWithData  int64            `json:"days_with_data"`
	DaysSkipped   int64            `json:"days_skipped"`
	Absences      map[string]int64 `json:"absences"`
	Uptime        time.Duration    `json:"uptime"`
}

// Snapshot returns a consistent copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	absences := make(map[string]int64, len(r.absences))
	for k, v := range r.absences {
		absences[k] = v
	}
	r.mu.Unlock()

	return Snapshot{
		QueriesIssued: atomic.LoadInt64(&r.queriesIssued),
		RowsFetched:   atomic.LoadInt64(&r.rowsFetched),
		DaysWithData:  atomic.LoadInt64(&r.daysWithData),
		DaysSkipped:   atomic.LoadInt64(&r.daysSkipped),
		Absences:      absences,
		Uptime:        time.Since(r.started),
	}
}

package engine

import "sync/atomic"

// Metrics tracks engine-level counters using atomic operations so reads
// never need the engine lock.
type Metrics struct {
	Searches        atomic.Int64
	CacheHits       atomic.Int64
	MemoriesSaved   atomic.Int64
	ActionsRecorded atomic.Int64
	Evictions       atomic.Int64
	Merges          atomic.Int64
	Archives        atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Searches        int64 `json:"searches"`
	CacheHits       int64 `json:"cacheHits"`
	MemoriesSaved   int64 `json:"memoriesSaved"`
	ActionsRecorded int64 `json:"actionsRecorded"`
	Evictions       int64 `json:"evictions"`
	Merges          int64 `json:"merges"`
	Archives        int64 `json:"archives"`
}

// Snapshot returns a consistent-enough copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Searches:        m.Searches.Load(),
		CacheHits:       m.CacheHits.Load(),
		MemoriesSaved:   m.MemoriesSaved.Load(),
		ActionsRecorded: m.ActionsRecorded.Load(),
		Evictions:       m.Evictions.Load(),
		Merges:          m.Merges.Load(),
		Archives:        m.Archives.Load(),
	}
}

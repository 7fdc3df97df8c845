package alloc

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of allocator activity. All counters are
// cumulative since construction.
type Stats struct {
	// TotalAllocated counts identifiers reserved from the store, issued or
	// not.
	TotalAllocated uint64 `json:"total_allocated"`

	// TotalUsed counts identifiers actually handed to callers.
	TotalUsed uint64 `json:"total_used"`

	// BatchAllocations counts completed batch acquisitions.
	BatchAllocations uint64 `json:"batch_allocations"`

	// StoreWrites counts durable counter writes.
	StoreWrites uint64 `json:"store_writes"`

	// AcquireTime is the cumulative wall time spent in batch acquisition,
	// including the durable write.
	AcquireTime time.Duration `json:"acquire_time"`

	// Current and Limit describe the in-memory range [Current, Limit) at
	// snapshot time.
	Current uint32 `json:"current"`
	Limit   uint32 `json:"limit"`
}

// Remaining returns the unissued tail of the snapshot's range.
func (s Stats) Remaining() uint64 {
	if s.Limit <= s.Current {
		return 0
	}
	return uint64(s.Limit - s.Current)
}

// Utilization returns used/allocated, or 0 before the first acquisition.
func (s Stats) Utilization() float64 {
	if s.TotalAllocated == 0 {
		return 0
	}
	return float64(s.TotalUsed) / float64(s.TotalAllocated)
}

// counters is the live, lock-free backing for Stats. Written by the issuing
// goroutine and the acquisition holder, read by anyone.
type counters struct {
	totalAllocated   atomic.Uint64
	totalUsed        atomic.Uint64
	batchAllocations atomic.Uint64
	storeWrites      atomic.Uint64
	acquireNanos     atomic.Uint64
}

// StatsSnapshot returns a consistent-enough view assembled from atomic loads.
// No lock is taken; individual counters may be skewed by in-flight updates.
func (a *Allocator) StatsSnapshot() Stats {
	return Stats{
		TotalAllocated:   a.stats.totalAllocated.Load(),
		TotalUsed:        a.stats.totalUsed.Load(),
		BatchAllocations: a.stats.batchAllocations.Load(),
		StoreWrites:      a.stats.storeWrites.Load(),
		AcquireTime:      time.Duration(a.stats.acquireNanos.Load()),
		Current:          uint32(a.cur.Load()),
		Limit:            uint32(a.limit.Load()),
	}
}

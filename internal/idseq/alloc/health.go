package alloc

import (
	"fmt"
	"math"

	"github.com/julianstephens/idseq/internal/idseq"
)

// HealthState classifies allocator health.
type HealthState uint8

const (
	StateHealthy HealthState = iota
	StateWarning
	StateCritical
)

func (s HealthState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateWarning:
		return "warning"
	case StateCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// HealthStatus is the result of a health check. Reason is empty when healthy.
type HealthStatus struct {
	State  HealthState `json:"state"`
	Reason string      `json:"reason,omitempty"`
}

// HealthCheck classifies the allocator from atomic loads only; it never
// touches the store.
//
// Critical: the cursor is within ExhaustionHeadroom of the 32-bit ceiling.
// Warning: remaining capacity is below the prefetch threshold, meaning a
// refill is due or overdue.
func (a *Allocator) HealthCheck() HealthStatus {
	cur := a.cur.Load()
	lim := a.limit.Load()

	if cur > uint64(math.MaxUint32-idseq.ExhaustionHeadroom) {
		return HealthStatus{
			State:  StateCritical,
			Reason: fmt.Sprintf("identifier space nearly exhausted, cursor at %d", cur),
		}
	}

	var remaining uint64
	if lim > cur {
		remaining = lim - cur
	}
	if remaining < uint64(a.cfg.PrefetchThreshold) {
		return HealthStatus{
			State:  StateWarning,
			Reason: fmt.Sprintf("only %d identifiers remaining in range", remaining),
		}
	}

	return HealthStatus{State: StateHealthy}
}

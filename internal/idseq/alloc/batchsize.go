package alloc

// Utilization bands for the dynamic batch sizer. Above the grow band most of
// the last batch was actually issued, so the durable write amortizes poorly;
// below the shrink band reserved identifiers are mostly wasted as gaps.
const (
	growUtilization   = 0.95
	shrinkUtilization = 0.50
)

// nextBatchSize computes the batch size for the upcoming acquisition from
// observed utilization. Called once per acquisition, under the allocation
// lock, before the store is contacted.
func nextBatchSize(current uint32, used, allocated uint64, minSize, maxSize uint32) uint32 {
	if allocated == 0 {
		// First batch: nothing observed yet, keep the configured size.
		return current
	}

	utilization := float64(used) / float64(allocated)
	switch {
	case utilization > growUtilization:
		doubled := uint64(current) * 2
		if doubled > uint64(maxSize) {
			return maxSize
		}
		return uint32(doubled)
	case utilization < shrinkUtilization:
		halved := current / 2
		if halved < minSize {
			return minSize
		}
		return halved
	default:
		return current
	}
}

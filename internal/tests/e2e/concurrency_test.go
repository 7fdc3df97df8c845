package e2e_test

import (
	"sync"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/idseq/internal/idseq"
	"github.com/julianstephens/idseq/internal/idseq/alloc"
	"github.com/julianstephens/idseq/internal/idseq/config"
	"github.com/julianstephens/idseq/internal/idseq/store"
	"github.com/julianstephens/idseq/internal/testutil"
)

// monotonicStore fails the test if the durable counter ever moves backwards.
type monotonicStore struct {
	store.CounterStore
	t *testing.T

	mu   sync.Mutex
	last uint32
}

func (ms *monotonicStore) Put(key string, value []byte) error {
	v, err := store.DecodeCounter(value)
	if err != nil {
		ms.t.Errorf("unexpected counter payload: %v", err)
		return err
	}

	ms.mu.Lock()
	if v < ms.last {
		ms.t.Errorf("durable counter moved backwards: %d after %d", v, ms.last)
	}
	ms.last = v
	ms.mu.Unlock()

	return ms.CounterStore.Put(key, value)
}

// ============================================================================
// Concurrent issuance: uniqueness plus a strictly monotonic durable counter.
// ============================================================================

// TestE2E_ConcurrentIssuersDurableCounterMonotonic hammers one allocator
// from many goroutines with a small batch so refills are frequent.
// Expected: every identifier unique, every durable write non-decreasing, and
// the final stored counter covering every issued identifier.
func TestE2E_ConcurrentIssuersDurableCounterMonotonic(t *testing.T) {
	const workers = 16
	const perWorker = 500

	inner := store.NewMemoryStore()
	defer func() { _ = inner.Close() }()
	ms := &monotonicStore{CounterStore: inner, t: t}

	cfg := config.Default()
	cfg.BatchSize = 64
	cfg.MinBatchSize = 16
	cfg.MaxBatchSize = 256
	cfg.PrefetchThreshold = 16
	cfg.StrictSync = false

	a, err := alloc.New(ms, cfg, alloc.Options{})
	tst.RequireNoError(t, err)

	ids := make(chan uint32, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := a.Next()
				if err != nil {
					t.Errorf("Next failed: %v", err)
					return
				}
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)
	tst.RequireNoError(t, a.Close())

	seen := make(map[uint32]struct{}, workers*perWorker)
	var max uint32
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("identifier %d issued twice", id)
		}
		seen[id] = struct{}{}
		if id > max {
			max = id
		}
	}
	tst.RequireDeepEqual(t, len(seen), workers*perWorker)

	stored := testutil.ReadCounter(t, inner, idseq.DefaultCounterKey)
	tst.AssertTrue(t, stored > max, "expected durable counter to cover every issued identifier")
}

// TestE2E_DynamicBatchStaysWithinBounds runs a bursty workload with dynamic
// sizing on and checks the effective batch never escapes its clamps.
func TestE2E_DynamicBatchStaysWithinBounds(t *testing.T) {
	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	cfg := config.Default()
	cfg.BatchSize = 32
	cfg.MinBatchSize = 8
	cfg.MaxBatchSize = 128
	cfg.PrefetchThreshold = 4
	cfg.StrictSync = false

	a, err := alloc.New(st, cfg, alloc.Options{})
	tst.RequireNoError(t, err)
	defer func() { _ = a.Close() }()

	for i := 0; i < 2000; i++ {
		_, err := a.Next()
		tst.RequireNoError(t, err)
	}

	s := a.StatsSnapshot()
	tst.AssertTrue(t, s.TotalAllocated >= s.TotalUsed,
		"allocated can never trail used")
	tst.AssertTrue(t, s.BatchAllocations >= 2000/uint64(cfg.MaxBatchSize),
		"expected the batch clamp to bound acquisition count")
}

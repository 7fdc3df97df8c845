// Package alloc implements a batched, crash-safe allocator for unique 32-bit
// identifiers.
//
// The allocator holds a half-open range [cur, limit) of identifiers already
// reserved in a durable counter store. Issuance is a lock-free CAS on cur;
// only when the range is exhausted does a caller take the allocation lock,
// reserve a fresh batch with a single durable write, and publish the new
// range. The durable write always precedes publication, so a crash can waste
// a batch (leaving a gap) but can never hand out the same identifier twice.
package alloc

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/julianstephens/idseq/internal/idseq"
	"github.com/julianstephens/idseq/internal/idseq/config"
	"github.com/julianstephens/idseq/internal/idseq/metrics"
	"github.com/julianstephens/idseq/internal/idseq/store"
	"github.com/julianstephens/idseq/internal/logger"
)

// Allocator hands out unique, monotonically increasing uint32 identifiers
// backed by a persistent counter store. All methods are safe for concurrent
// use.
type Allocator struct {
	store store.CounterStore
	key   string
	cfg   config.Config
	log   logger.Logger
	mx    *metrics.Metrics

	// cur and limit hold uint32 values widened to 64 bits so the issuance
	// CAS can transiently push cur past limit without wrapping. An ID is
	// only issued after the CAS confirms it was below limit.
	cur   atomic.Uint64
	limit atomic.Uint64

	// lockCh is the allocation lock: a 1-slot semaphore rather than a
	// sync.Mutex so acquisition can honor AcquireLockTimeout.
	lockCh chan struct{}

	// batchSize is the effective size of the next batch. Guarded by the
	// allocation lock.
	batchSize uint32

	prefetching atomic.Bool
	pool        *ants.Pool
	ownPool     bool
	wg          sync.WaitGroup

	closed atomic.Bool

	stats counters
}

// Options carries optional collaborators. Zero value is fine: logging is
// discarded, metrics are disabled, and a private single-worker pool runs the
// prefetch task.
type Options struct {
	Logger logger.Logger

	// Metrics receives allocator activity when non-nil.
	Metrics *metrics.Metrics

	// Pool runs the background prefetch task. When nil the allocator owns a
	// single-worker pool and releases it on Close.
	Pool *ants.Pool
}

// New constructs an allocator against st. The in-memory range starts empty,
// so the first Next call performs a synchronous batch acquisition. The store
// is owned by the caller and is not closed by Allocator.Close.
func New(st store.CounterStore, cfg config.Config, opts Options) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lg := opts.Logger
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	a := &Allocator{
		store:     st,
		key:       cfg.CounterKey,
		cfg:       cfg,
		log:       lg,
		mx:        opts.Metrics,
		lockCh:    make(chan struct{}, 1),
		batchSize: cfg.BatchSize,
		pool:      opts.Pool,
	}

	if a.pool == nil {
		pool, err := ants.NewPool(1,
			ants.WithNonblocking(true),
			ants.WithPanicHandler(func(v interface{}) {
				lg.Error("panic in prefetch worker", nil, "panic", v)
			}),
		)
		if err != nil {
			return nil, &AllocError{Op: "new", Err: ErrStore, Cause: err}
		}
		a.pool = pool
		a.ownPool = true
	}

	lg.Info("allocator ready",
		"counter_key", a.key,
		"batch_size", cfg.BatchSize,
		"prefetch_threshold", cfg.PrefetchThreshold,
		"dynamic_batch", cfg.EnableDynamicBatch,
	)
	return a, nil
}

// Next issues the next identifier. The fast path is a single CAS; when the
// range is exhausted the caller blocks on the allocation lock and the
// durable store write.
func (a *Allocator) Next() (uint32, error) {
	if a.closed.Load() {
		return 0, &AllocError{Op: "next", Err: ErrClosed}
	}

	for {
		cur := a.cur.Load()
		lim := a.limit.Load()

		if cur < lim {
			if !a.cur.CompareAndSwap(cur, cur+1) {
				// Lost the race; re-read and retry.
				continue
			}
			a.stats.totalUsed.Add(1)
			a.mx.IssuedID()

			if lim-(cur+1) <= uint64(a.cfg.PrefetchThreshold) {
				a.schedulePrefetch()
			}
			return uint32(cur), nil
		}

		if err := a.acquireBlocking(); err != nil {
			return 0, err
		}
	}
}

// Peek returns the identifier the fast path would try to issue next, without
// reserving it. Before the first acquisition this is 0.
func (a *Allocator) Peek() uint32 {
	return uint32(a.cur.Load())
}

// acquireBlocking refills the range from the foreground path. The double
// check after taking the lock makes concurrent callers converge on a single
// store write.
func (a *Allocator) acquireBlocking() error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.unlock()

	if a.cur.Load() < a.limit.Load() {
		// Another caller or the prefetcher already refilled.
		return nil
	}
	return a.extendLocked()
}

// extendLocked reserves the next batch and publishes it. Caller must hold
// the allocation lock.
//
// Ordering is the crash-safety linchpin: the durable counter is advanced
// past the whole batch before any identifier in it can be issued. A crash
// between the write and publication discards the batch (a gap in the
// sequence), never a duplicate.
func (a *Allocator) extendLocked() error {
	start := time.Now()

	stored, err := a.readStored()
	if err != nil {
		return err
	}

	if a.cfg.EnableDynamicBatch {
		a.batchSize = nextBatchSize(
			a.batchSize,
			a.stats.totalUsed.Load(),
			a.stats.totalAllocated.Load(),
			a.cfg.MinBatchSize,
			a.cfg.MaxBatchSize,
		)
	}
	batch := a.batchSize

	newLimit := uint64(stored) + uint64(batch)
	if newLimit > math.MaxUint32 {
		return &AllocError{Op: "acquire", Key: a.key, Err: ErrIDExhausted}
	}

	if err := a.store.Put(a.key, store.EncodeCounter(uint32(newLimit))); err != nil {
		return &AllocError{Op: "acquire", Key: a.key, Err: ErrStore, Cause: err}
	}
	if a.cfg.StrictSync {
		if s, ok := a.store.(store.Syncer); ok {
			if err := s.Sync(); err != nil {
				return &AllocError{Op: "acquire", Key: a.key, Err: ErrStore, Cause: err}
			}
		}
	}

	// Publish. When the durable counter matched our limit the new batch is
	// contiguous: extend limit in place and keep every still-reserved ID.
	// Otherwise move cur first and limit last, so a reader that observes the
	// new limit also observes the matching cur.
	if uint64(stored) != a.limit.Load() {
		a.cur.Store(uint64(stored))
	}
	a.limit.Store(newLimit)

	elapsed := time.Since(start)
	a.stats.totalAllocated.Add(uint64(batch))
	a.stats.batchAllocations.Add(1)
	a.stats.storeWrites.Add(1)
	a.stats.acquireNanos.Add(uint64(elapsed.Nanoseconds()))
	a.mx.BatchAcquired(batch, elapsed)
	a.mx.SetRemaining(a.limit.Load() - a.cur.Load())

	a.log.Debug("acquired id batch",
		"start", stored, "limit", newLimit, "batch_size", batch,
	)
	return nil
}

// readStored reads the durable counter, treating a missing record as first
// use.
func (a *Allocator) readStored() (uint32, error) {
	raw, ok, err := a.store.Get(a.key)
	if err != nil {
		return 0, &AllocError{Op: "read", Key: a.key, Err: ErrStore, Cause: err}
	}
	if !ok {
		return idseq.FirstID, nil
	}

	v, err := store.DecodeCounter(raw)
	if err != nil {
		return 0, &AllocError{Op: "read", Key: a.key, Err: ErrCorruptedData, Cause: err}
	}
	if v < idseq.FirstID {
		v = idseq.FirstID
	}
	return v, nil
}

func (a *Allocator) lock() error {
	if a.cfg.AcquireLockTimeout <= 0 {
		a.lockCh <- struct{}{}
		return nil
	}

	t := time.NewTimer(a.cfg.AcquireLockTimeout)
	defer t.Stop()
	select {
	case a.lockCh <- struct{}{}:
		return nil
	case <-t.C:
		return &AllocError{Op: "lock", Err: ErrLockTimeout}
	}
}

func (a *Allocator) unlock() { <-a.lockCh }

// Close stops issuance, waits for an in-flight prefetch, and releases the
// allocator-owned worker pool. The store is left open for the caller.
func (a *Allocator) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return &AllocError{Op: "close", Err: ErrClosed}
	}

	a.wg.Wait()
	if a.ownPool {
		a.pool.Release()
	}

	a.log.Info("allocator closed", "counter_key", a.key)
	return nil
}

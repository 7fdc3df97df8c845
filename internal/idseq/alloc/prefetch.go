package alloc

// Prefetch refills the range before the fast path exhausts it, moving store
// latency off the caller's critical path. At most one prefetch task is in
// flight: the prefetching flag is taken with a CAS and cleared when the task
// exits, success or not. Failures are logged and swallowed; an exhausted
// fast path falls back to a synchronous acquisition with its own error
// handling.

// schedulePrefetch submits the refill task unless one is already running.
// Never blocks the caller.
func (a *Allocator) schedulePrefetch() {
	if a.closed.Load() {
		return
	}
	if !a.prefetching.CompareAndSwap(false, true) {
		return
	}

	a.wg.Add(1)
	err := a.pool.Submit(func() {
		defer a.wg.Done()
		defer a.prefetching.Store(false)
		a.runPrefetch()
	})
	if err != nil {
		a.wg.Done()
		a.prefetching.Store(false)
		a.log.Warn("prefetch submission rejected", "error", err)
	}
}

// runPrefetch performs the same double-checked acquisition as the foreground
// path. Racing with a foreground acquisition is fine; both converge on the
// allocation lock.
func (a *Allocator) runPrefetch() {
	if a.closed.Load() {
		return
	}

	if err := a.lock(); err != nil {
		a.log.Warn("prefetch could not take allocation lock", "error", err)
		return
	}
	defer a.unlock()

	cur := a.cur.Load()
	lim := a.limit.Load()
	if lim > cur && lim-cur > uint64(a.cfg.PrefetchThreshold) {
		// Refilled while we waited for the lock.
		return
	}

	if err := a.extendLocked(); err != nil {
		a.log.Error("prefetch batch acquisition failed", err, "key", a.key)
	}
}

package testutil

import (
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/idseq/internal/idseq/alloc"
	"github.com/julianstephens/idseq/internal/idseq/config"
	"github.com/julianstephens/idseq/internal/idseq/store"
)

// RestartHarness simulates unclean process restarts against one durable
// store. Crash drops the current allocator without closing it; Reopen builds
// a fresh one over the same store bytes, exactly like a new process would.
type RestartHarness struct {
	t     *testing.T
	store store.CounterStore
	cfg   config.Config

	current *alloc.Allocator

	// Issued accumulates every identifier handed out across all incarnations.
	Issued []uint32
}

// NewRestartHarness creates a harness over st with the given config.
func NewRestartHarness(t *testing.T, st store.CounterStore, cfg config.Config) *RestartHarness {
	t.Helper()
	h := &RestartHarness{t: t, store: st, cfg: cfg}
	h.Reopen()
	return h
}

// Allocator returns the live incarnation.
func (h *RestartHarness) Allocator() *alloc.Allocator {
	return h.current
}

// Take issues n identifiers from the live incarnation and records them.
func (h *RestartHarness) Take(n int) []uint32 {
	h.t.Helper()
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		id, err := h.current.Next()
		tst.RequireNoError(h.t, err)
		out = append(out, id)
	}
	h.Issued = append(h.Issued, out...)
	return out
}

// Crash abandons the live allocator without Close, discarding its in-memory
// range the way a killed process would.
func (h *RestartHarness) Crash() {
	h.current = nil
}

// Reopen constructs a fresh allocator against the same store.
func (h *RestartHarness) Reopen() {
	h.t.Helper()
	a, err := alloc.New(h.store, h.cfg, alloc.Options{})
	tst.RequireNoError(h.t, err)
	h.current = a
	h.t.Cleanup(func() { _ = a.Close() })
}

// AssertNoDuplicates fails the test if any identifier was issued twice
// across incarnations.
func (h *RestartHarness) AssertNoDuplicates() {
	h.t.Helper()
	seen := make(map[uint32]struct{}, len(h.Issued))
	for _, id := range h.Issued {
		if _, dup := seen[id]; dup {
			h.t.Fatalf("identifier %d issued twice across restarts", id)
		}
		seen[id] = struct{}{}
	}
}

package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/idseq/internal/idseq/store"
)

func TestLogStoreRoundTrip(t *testing.T) {
	st, err := store.OpenLogStore(t.TempDir(), store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st.Close() }()

	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(42)))

	raw, ok, err := st.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected record to exist")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(42))
}

func TestLogStoreMissingKey(t *testing.T) {
	st, err := store.OpenLogStore(t.TempDir(), store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st.Close() }()

	_, ok, err := st.Get("never-written")
	tst.RequireNoError(t, err)
	tst.AssertFalse(t, ok, "expected missing record to report ok=false")
}

func TestLogStoreLastAppendWins(t *testing.T) {
	st, err := store.OpenLogStore(t.TempDir(), store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st.Close() }()

	for v := uint32(1); v <= 5; v++ {
		tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(v)))
	}

	raw, ok, err := st.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected record to exist")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(5))
}

func TestLogStoreReplayAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := store.OpenLogStore(dir, store.LogStoreOpts{StrictSync: true})
	tst.RequireNoError(t, err)
	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(10)))
	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(20)))
	tst.RequireNoError(t, st.Close())

	st2, err := store.OpenLogStore(dir, store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st2.Close() }()

	raw, ok, err := st2.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected record to survive reopen")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(20))
}

func TestLogStoreTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()

	st, err := store.OpenLogStore(dir, store.LogStoreOpts{StrictSync: true})
	tst.RequireNoError(t, err)
	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(10)))
	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(20)))
	tst.RequireNoError(t, st.Close())

	// Simulate a crash mid-append: garbage bytes after the last frame.
	p := filepath.Join(dir, "counter.log")
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0o600)
	tst.RequireNoError(t, err)
	_, err = f.Write([]byte{0xff, 0xee, 0xdd})
	tst.RequireNoError(t, err)
	tst.RequireNoError(t, f.Close())

	st2, err := store.OpenLogStore(dir, store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st2.Close() }()

	raw, ok, err := st2.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected last intact record to survive a torn tail")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(20))

	// The truncated log accepts appends again.
	tst.RequireNoError(t, st2.Put("counter", store.EncodeCounter(30)))
	raw, _, err = st2.Get("counter")
	tst.RequireNoError(t, err)
	v, err = store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(30))
}

func TestLogStoreCompactsOnOpen(t *testing.T) {
	dir := t.TempDir()

	st, err := store.OpenLogStore(dir, store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	for v := uint32(1); v <= 50; v++ {
		tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(v)))
	}
	tst.RequireNoError(t, st.Close())

	st2, err := store.OpenLogStore(dir, store.LogStoreOpts{CompactAboveBytes: 64})
	tst.RequireNoError(t, err)
	defer func() { _ = st2.Close() }()

	raw, ok, err := st2.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected record to survive compaction")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(50))

	info, err := os.Stat(filepath.Join(dir, "counter.log"))
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, info.Size() <= 64, "expected compaction to rewrite the log as a single frame")
}

func TestLogStoreRejectsOversizedValue(t *testing.T) {
	st, err := store.OpenLogStore(t.TempDir(), store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	defer func() { _ = st.Close() }()

	if err := st.Put("counter", nil); err == nil {
		t.Error("expected error for empty value")
	}
	if err := st.Put("counter", make([]byte, 128<<10)); err == nil {
		t.Error("expected error for oversized value")
	}
}

func TestLogStoreClosed(t *testing.T) {
	st, err := store.OpenLogStore(t.TempDir(), store.LogStoreOpts{})
	tst.RequireNoError(t, err)
	tst.RequireNoError(t, st.Close())

	if _, _, err := st.Get("counter"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed from Get, got %v", err)
	}
	if err := st.Put("counter", store.EncodeCounter(1)); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed from Put, got %v", err)
	}
	if err := st.Sync(); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed from Sync, got %v", err)
	}
}

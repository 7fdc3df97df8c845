package store_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/idseq/internal/idseq/store"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	tst.RequireNoError(t, st.Put("counter", store.EncodeCounter(42)))

	raw, ok, err := st.Get("counter")
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected record to exist")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(42))

	_, ok, err = st.Get("missing")
	tst.RequireNoError(t, err)
	tst.AssertFalse(t, ok, "expected missing record to report ok=false")
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	val := store.EncodeCounter(1)
	tst.RequireNoError(t, st.Put("counter", val))

	// Mutating the caller's slice must not reach the stored record.
	val[0] = 0xff
	raw, _, err := st.Get("counter")
	tst.RequireNoError(t, err)
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(1))

	// Nor must mutating a returned slice.
	raw[0] = 0xff
	raw2, _, err := st.Get("counter")
	tst.RequireNoError(t, err)
	v, err = store.DecodeCounter(raw2)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, v, uint32(1))
}

func TestMemoryStoreConcurrent(t *testing.T) {
	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("counter-%d", w)
			for i := uint32(1); i <= 100; i++ {
				if err := st.Put(key, store.EncodeCounter(i)); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				if _, _, err := st.Get(key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		raw, ok, err := st.Get(fmt.Sprintf("counter-%d", w))
		tst.RequireNoError(t, err)
		tst.AssertTrue(t, ok, "expected record to exist")
		v, err := store.DecodeCounter(raw)
		tst.RequireNoError(t, err)
		tst.RequireDeepEqual(t, v, uint32(100))
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	st := store.NewMemoryStore()
	tst.RequireNoError(t, st.Close())

	if _, _, err := st.Get("counter"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed from Get, got %v", err)
	}
	if err := st.Put("counter", store.EncodeCounter(1)); !errors.Is(err, store.ErrClosed) {
		t.Errorf("expected ErrClosed from Put, got %v", err)
	}
}

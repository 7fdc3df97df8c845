package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/julianstephens/idseq/internal/idseq/store"
)

// RecordingStore wraps a CounterStore and counts operations. Useful for
// asserting how many durable writes a scenario performs.
type RecordingStore struct {
	Inner store.CounterStore

	Gets  atomic.Uint64
	Puts  atomic.Uint64
	Syncs atomic.Uint64
}

func NewRecordingStore(inner store.CounterStore) *RecordingStore {
	return &RecordingStore{Inner: inner}
}

func (rs *RecordingStore) Get(key string) ([]byte, bool, error) {
	rs.Gets.Add(1)
	return rs.Inner.Get(key)
}

func (rs *RecordingStore) Put(key string, value []byte) error {
	rs.Puts.Add(1)
	return rs.Inner.Put(key, value)
}

func (rs *RecordingStore) Sync() error {
	rs.Syncs.Add(1)
	if s, ok := rs.Inner.(store.Syncer); ok {
		return s.Sync()
	}
	return nil
}

func (rs *RecordingStore) Close() error { return rs.Inner.Close() }

// FlakyStore wraps a CounterStore and fails the first FailPuts puts and
// FailGets gets with Err, then behaves normally. Models a transiently broken
// medium.
type FlakyStore struct {
	Inner store.CounterStore
	Err   error

	failPuts atomic.Int64
	failGets atomic.Int64
}

func NewFlakyStore(inner store.CounterStore, err error, failGets, failPuts int64) *FlakyStore {
	fs := &FlakyStore{Inner: inner, Err: err}
	fs.failGets.Store(failGets)
	fs.failPuts.Store(failPuts)
	return fs
}

func (fs *FlakyStore) Get(key string) ([]byte, bool, error) {
	if fs.failGets.Add(-1) >= 0 {
		return nil, false, fs.Err
	}
	return fs.Inner.Get(key)
}

func (fs *FlakyStore) Put(key string, value []byte) error {
	if fs.failPuts.Add(-1) >= 0 {
		return fs.Err
	}
	return fs.Inner.Put(key, value)
}

// FailNextPuts arms the store to fail the next n puts. Passing 0 disarms it.
func (fs *FlakyStore) FailNextPuts(n int64) {
	fs.failPuts.Store(n)
}

func (fs *FlakyStore) Close() error { return fs.Inner.Close() }

// SlowStore wraps a CounterStore and sleeps before every put. Useful for
// holding an allocation in flight while another caller contends for it.
type SlowStore struct {
	Inner store.CounterStore
	Delay time.Duration
}

func (ss *SlowStore) Get(key string) ([]byte, bool, error) { return ss.Inner.Get(key) }

func (ss *SlowStore) Put(key string, value []byte) error {
	time.Sleep(ss.Delay)
	return ss.Inner.Put(key, value)
}

func (ss *SlowStore) Close() error { return ss.Inner.Close() }

// SeedCounter writes an initial durable counter value, as if a previous
// process had reserved up to v.
func SeedCounter(t *testing.T, st store.CounterStore, key string, v uint32) {
	t.Helper()
	tst.RequireNoError(t, st.Put(key, store.EncodeCounter(v)))
}

// ReadCounter reads the current durable counter value, failing the test if
// the record is missing or corrupt.
func ReadCounter(t *testing.T, st store.CounterStore, key string) uint32 {
	t.Helper()
	raw, ok, err := st.Get(key)
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, ok, "expected counter record to exist")
	v, err := store.DecodeCounter(raw)
	tst.RequireNoError(t, err)
	return v
}

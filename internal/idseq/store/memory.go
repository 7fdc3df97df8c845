package store

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const memoryShardCount = 32 // power of 2 so shard selection is a mask

// MemoryStore is an in-memory counter store sharded by key hash. It exists
// for tests, benchmarks, and embedding scenarios where durability is handled
// elsewhere; records do not survive the process.
type MemoryStore struct {
	shards [memoryShardCount]memoryShard
	closed atomic.Bool
}

type memoryShard struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{}
	for i := range ms.shards {
		ms.shards[i].data = make(map[string][]byte)
	}
	return ms
}

func (ms *MemoryStore) shardFor(key string) *memoryShard {
	return &ms.shards[xxhash.Sum64String(key)&(memoryShardCount-1)]
}

// Get returns a copy of the record stored under key.
func (ms *MemoryStore) Get(key string) ([]byte, bool, error) {
	if ms.closed.Load() {
		return nil, false, wrapStoreErr("get", ErrClosed, key, "", nil)
	}

	sh := ms.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	v, ok := sh.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put stores a copy of value under key.
func (ms *MemoryStore) Put(key string, value []byte) error {
	if ms.closed.Load() {
		return wrapStoreErr("put", ErrClosed, key, "", nil)
	}

	sh := ms.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	sh.data[key] = v
	return nil
}

// Close marks the store closed; contents are discarded with the process.
func (ms *MemoryStore) Close() error {
	if !ms.closed.CompareAndSwap(false, true) {
		return wrapStoreErr("close", ErrClosed, "", "", nil)
	}
	return nil
}

var _ CounterStore = (*MemoryStore)(nil)

package store

import (
	"encoding/binary"

	"github.com/julianstephens/idseq/internal/idseq"
)

// CounterStore is the durable collaborator the allocator reserves identifier
// batches against. Implementations must provide atomic single-key get/put;
// no cross-key transactional behavior is assumed.
type CounterStore interface {
	// Get returns the raw record stored under key. ok is false when the key
	// has never been written.
	Get(key string) (value []byte, ok bool, err error)

	// Put durably replaces the record under key. When Put returns nil the
	// record must survive a process crash.
	Put(key string, value []byte) error

	Close() error
}

// Syncer is an optional interface for stores that buffer writes. Stores that
// implement it are flushed after every Put when strict durability is
// configured.
type Syncer interface {
	Sync() error
}

// EncodeCounter encodes a counter value as a fixed-size big-endian record.
func EncodeCounter(v uint32) []byte {
	buf := make([]byte, idseq.CounterRecordSize)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeCounter decodes a counter record. A record of any other size is
// corrupt; there is no auto-repair.
func DecodeCounter(b []byte) (uint32, error) {
	if len(b) != idseq.CounterRecordSize {
		return 0, &StoreError{
			Op:   "decode",
			Err:  ErrCorruptRecord,
			Size: len(b),
		}
	}
	return binary.BigEndian.Uint32(b), nil
}

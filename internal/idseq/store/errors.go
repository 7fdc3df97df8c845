package store

import (
	"errors"
	"fmt"
)

var (
	// Returned when a counter record has an unexpected size or framing.
	ErrCorruptRecord = errors.New("store: corrupt counter record")

	// Returned when a read from the backing medium fails.
	ErrRead = errors.New("store: read failed")

	// Returned when a write to the backing medium fails.
	ErrWrite = errors.New("store: write failed")

	// Returned when a durability flush fails.
	ErrSync = errors.New("store: sync failed")

	// Returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store: closed")
)

// StoreError wraps store failures with a stable sentinel plus context.
type StoreError struct {
	Err error

	Op   string // operation being performed, e.g. "get", "put"
	Key  string // store key involved, if any
	Path string // backing file path, if any
	Size int    // record size for corrupt-record errors

	Cause error
}

func (e *StoreError) Error() string {
	base := fmt.Sprintf("store %s failed", e.Op)
	if e.Key != "" {
		base = fmt.Sprintf("%s key=%s", base, e.Key)
	}
	if e.Path != "" {
		base = fmt.Sprintf("%s path=%s", base, e.Path)
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func wrapStoreErr(op string, sentinel error, key, path string, cause error) error {
	return &StoreError{
		Err:   sentinel,
		Op:    op,
		Key:   key,
		Path:  path,
		Cause: cause,
	}
}

package alloc

import (
	"errors"
	"fmt"
)

var (
	// Returned when the persistent counter store fails. Recoverable; eligible
	// for NextWithRetry.
	ErrStore = errors.New("alloc: store operation failed")

	// Returned when the stored counter record has an unexpected size or
	// format. Fatal; there is no auto-repair.
	ErrCorruptedData = errors.New("alloc: corrupt counter record")

	// Returned when a batch would overflow the 32-bit identifier space.
	// Fatal.
	ErrIDExhausted = errors.New("alloc: identifier space exhausted")

	// Returned when the allocation lock could not be taken within the
	// configured timeout. Recoverable; treated like a transient store error.
	ErrLockTimeout = errors.New("alloc: allocation lock timeout")

	// Returned when the allocator has been closed.
	ErrClosed = errors.New("alloc: allocator closed")
)

// AllocError wraps allocator failures with a stable sentinel plus context.
type AllocError struct {
	Err error

	Op  string // operation being performed, e.g. "next", "acquire"
	Key string // durable counter key, if relevant

	Cause error
}

func (e *AllocError) Error() string {
	base := fmt.Sprintf("alloc %s failed", e.Op)
	if e.Key != "" {
		base = fmt.Sprintf("%s key=%s", base, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", base, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient failure that a bounded
// retry may clear.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStore) || errors.Is(err, ErrLockTimeout)
}

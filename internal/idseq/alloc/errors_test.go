package alloc_test

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/julianstephens/idseq/internal/idseq/alloc"
)

func TestAllocErrorUnwrap(t *testing.T) {
	cause := errors.New("disk offline")
	err := &alloc.AllocError{Op: "acquire", Key: "counter", Err: alloc.ErrStore, Cause: cause}

	assert.True(t, errors.Is(err, alloc.ErrStore))
	assert.False(t, errors.Is(err, alloc.ErrCorruptedData))
	assert.Contains(t, err.Error(), "acquire")
	assert.Contains(t, err.Error(), "key=counter")
	assert.Contains(t, err.Error(), "disk offline")
}

func TestAllocErrorWithoutCause(t *testing.T) {
	err := &alloc.AllocError{Op: "next", Err: alloc.ErrClosed}

	assert.True(t, errors.Is(err, alloc.ErrClosed))
	assert.Contains(t, err.Error(), "next")
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"store failure", &alloc.AllocError{Op: "acquire", Err: alloc.ErrStore}, true},
		{"lock timeout", &alloc.AllocError{Op: "lock", Err: alloc.ErrLockTimeout}, true},
		{"corruption", &alloc.AllocError{Op: "read", Err: alloc.ErrCorruptedData}, false},
		{"exhaustion", &alloc.AllocError{Op: "acquire", Err: alloc.ErrIDExhausted}, false},
		{"closed", &alloc.AllocError{Op: "next", Err: alloc.ErrClosed}, false},
		{"unrelated", errors.New("something else"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, alloc.IsRetryable(tc.err))
		})
	}
}

package alloc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryBackoffInterval is the fixed wait between retry attempts. The durable
// store is a local medium, so a short constant interval clears transient
// failures without exponential ramp-up.
const retryBackoffInterval = 50 * time.Millisecond

// NextWithRetry issues an identifier, re-invoking Next up to maxRetries
// times with a fixed backoff while the failure is transient (store error or
// lock timeout). Fatal errors and context cancellation surface immediately.
func (a *Allocator) NextWithRetry(ctx context.Context, maxRetries uint64) (uint32, error) {
	var id uint32

	op := func() error {
		v, err := a.Next()
		if err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		id = v
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryBackoffInterval), maxRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return 0, err
	}
	return id, nil
}

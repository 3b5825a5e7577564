package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const busyRetries = 5

// RetryBusy runs fn again while the database reports lock contention.
// Any other error is returned at once.
func RetryBusy(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !IsBusyErr(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(busyRetries))
	return err
}

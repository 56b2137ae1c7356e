package githubclt

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/pulljoy/internal/joyerr"
	"github.com/simplesurance/pulljoy/internal/logfields"
)

const defRetryTimeout = 5 * time.Minute
const defInitialRetryInterval = 2 * time.Second

// retryer runs github requests repeatedly until they succeed, fail with a
// non-temporary error or the retry timeout expired.
type retryer struct {
	logger     *zap.Logger
	maxElapsed time.Duration
}

func newRetryer(logger *zap.Logger, maxElapsed time.Duration) *retryer {
	return &retryer{
		logger:     logger.Named("retryer"),
		maxElapsed: maxElapsed,
	}
}

// do executes fn until it succeeds or it returned an error that does not wrap
// a joyerr.RetryableError.
// When a RetryableError specifies an earliest retry time, the backoff pause
// is extended until that time.
func (r *retryer) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var tryCnt uint

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defInitialRetryInterval
	bo.MaxElapsedTime = r.maxElapsed

	for {
		tryCnt++

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var retryErr *joyerr.RetryableError
		if !errors.As(err, &retryErr) {
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			r.logger.Warn(
				"giving up retrying github request, retry timeout expired",
				logfields.Event("github_request_retry_timeout"),
				zap.String("github_operation", operation),
				zap.Uint("try_count", tryCnt),
				zap.Error(err),
			)

			return err
		}

		if !retryErr.After.IsZero() {
			if until := time.Until(retryErr.After); until > wait {
				wait = until
			}
		}

		r.logger.Info(
			"github request failed temporarily, retry scheduled",
			logfields.Event("github_request_retry_scheduled"),
			zap.String("github_operation", operation),
			zap.Uint("try_count", tryCnt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

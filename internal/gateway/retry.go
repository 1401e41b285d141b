package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v57/github"
)

// RetryPolicy bounds how often a failed request is repeated.
// Only 5xx responses and transport failures are retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
}

// DefaultRetryPolicy is used when none is configured
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, InitialInterval: 500 * time.Millisecond}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// do runs call until it succeeds, fails permanently, or retries run out.
// The returned error is already classified.
func (p RetryPolicy) do(ctx context.Context, op string, call func() (*github.Response, error)) error {
	var resp *github.Response
	err := backoff.Retry(func() error {
		var err error
		resp, err = call()
		if err == nil {
			return nil
		}
		if retryable(ctx, resp, err) {
			return err
		}
		return backoff.Permanent(err)
	}, p.backOff(ctx))
	if err != nil {
		return classify(op, resp, err)
	}
	return nil
}

func retryable(ctx context.Context, resp *github.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}
	status := statusOf(resp)
	return status == 0 || status >= http.StatusInternalServerError
}

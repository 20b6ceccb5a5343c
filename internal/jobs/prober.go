package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPProber reports a service healthy when GET url answers 2xx. Transport
// errors are retried a bounded number of times within the caller's deadline.
type HTTPProber struct {
	client  *http.Client
	retries uint64
}

// NewHTTPProber creates a prober with an instrumented client
func NewHTTPProber(retries uint64) *HTTPProber {
	return &HTTPProber{
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		retries: retries,
	}
}

// Probe checks url once per attempt
func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond

	return backoff.Retry(func() error {
		return p.get(ctx, url)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, p.retries), ctx))
}

func (p *HTTPProber) get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("invalid health url %q: %w", url, err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backoff.Permanent(fmt.Errorf("health endpoint returned %d", resp.StatusCode))
	}
	return nil
}

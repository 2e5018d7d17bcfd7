package httpfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// RetryPolicy bounds the retry loop. Transient failures are retried up to
// MaxAttempts total attempts, sleeping BaseDelay doubled per retry and
// capped at MaxDelay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the providers' documented guidance: three
// attempts, one second base, capped at thirty seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the backoff before the attempt following the given
// zero-based failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// limiter is the interface satisfied by ratelimit.Limiter.
type limiter interface {
	Acquire(ctx context.Context) error
}

// Client issues rate-limited GET requests with retry and classified
// failures. One Client serves one provider and holds that provider's
// limiter; the overall deadline is the caller's context.
type Client struct {
	http    *http.Client
	limiter limiter
	policy  RetryPolicy
}

// NewClient constructs a Client over the given limiter and retry policy.
func NewClient(limiter limiter, policy RetryPolicy) *Client {
	return &Client{
		http:    &http.Client{Timeout: defaultRequestTimeout},
		limiter: limiter,
		policy:  policy,
	}
}

// NewClientWithHTTP constructs a Client with a custom http.Client (used in
// tests to shorten the per-request timeout).
func NewClientWithHTTP(limiter limiter, policy RetryPolicy, hc *http.Client) *Client {
	return &Client{http: hc, limiter: limiter, policy: policy}
}

// GetJSON fetches rawURL and decodes the JSON response into dst. Transient
// failures (timeout, transport, 5xx) are retried per the policy; 4xx and
// undecodable bodies propagate immediately. Each attempt first acquires a
// rate-limit token. Once ctx is done no further attempt is started; an
// in-flight request is never interrupted beyond its own timeout.
func (c *Client) GetJSON(ctx context.Context, rawURL string, dst any) error {
	var lastErr error

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.policy.Delay(attempt - 1)
			slog.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("fetch aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
			}
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := c.attempt(ctx, rawURL, dst)
		if err == nil {
			return nil
		}
		lastErr = err

		var fe *Error
		if errors.As(err, &fe) && !fe.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}

	return fmt.Errorf("fetch failed after %d attempts: %w", c.policy.MaxAttempts, lastErr)
}

// attempt performs a single classified GET.
func (c *Client) attempt(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Kind: KindInvalidResponse, URL: rawURL, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: classifyTransport(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindServer, Status: resp.StatusCode, URL: rawURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &Error{Kind: KindInvalidResponse, URL: rawURL, Err: err}
	}
	return nil
}

// classifyTransport separates timeouts from other transport failures.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

package fetchers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// maxBodyBytes caps response bodies so a misbehaving source cannot
// exhaust memory.
const maxBodyBytes = 10 << 20 // 10MB

// userAgent identifies harvest to the sources it fetches from.
const userAgent = "harvest-cli/1.0 (+https://github.com/bankwatch-labs/harvest-cli)"

// Client is the shared HTTP client for all fetchers: one token-bucket
// limiter per source, a per-request timeout, and exponential-backoff
// retries for transient failures.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	retries int
	source  string
}

// NewClient creates a client for one source.
func NewClient(source string, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retries: opts.MaxRetries,
		source:  source,
	}
}

// Get fetches a URL, applying rate limiting and retrying transient
// failures. Returns the body bytes or a *domain.FetchError after the
// retry budget is exhausted.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := c.getOnce(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logger.Debug("retryable fetch failure for %s: %v", url, err)
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &domain.FetchError{Source: c.source, URL: url, Cause: err}
	}
	return body, nil
}

// getOnce performs a single request attempt.
func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, rateLimitError(resp)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// rateLimitError builds a RateLimitError from a 429 response.
func rateLimitError(resp *http.Response) error {
	e := &domain.RateLimitError{}
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			e.ResetAt = time.Now().Add(time.Duration(seconds) * time.Second)
		}
	}
	return e
}

// Package rangeapi implements the RangeLookup port against a k-anonymity
// password range service.
package rangeapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
	"github.com/ericfisherdev/credreview/internal/fingerprint"
)

// DefaultBaseURL is the public range service.
const DefaultBaseURL = "https://api.pwnedpasswords.com"

const (
	maxAttempts    = 3
	attemptTimeout = 10 * time.Second
)

// Compile-time interface satisfaction check.
var _ driven.RangeLookup = (*Client)(nil)

// errRateLimited is returned when every attempt was answered with 429.
var errRateLimited = errors.New("rate limited")

// Backoff returns how long to wait before the next attempt. attempt is
// zero-based; rateLimited reports whether the failed attempt got a 429.
type Backoff func(attempt int, rateLimited bool) time.Duration

// DefaultBackoff waits 500ms·2^attempt after a 429 and 200ms·(attempt+1)
// after any other failure.
func DefaultBackoff(attempt int, rateLimited bool) time.Duration {
	if rateLimited {
		return time.Duration(1<<attempt) * 500 * time.Millisecond
	}
	return time.Duration(attempt+1) * 200 * time.Millisecond
}

// Client fetches published suffix ranges for SHA-1 prefixes.
type Client struct {
	http    *http.Client
	baseURL string
	backoff Backoff
	logger  *slog.Logger
}

// NewClient creates a Client whose transport is an in-memory HTTP cache, so
// repeated prefixes within a process are answered from cache when the
// service allows it.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return NewClientWithHTTPClient(&http.Client{Transport: httpcache.NewMemoryCacheTransport()}, baseURL, DefaultBackoff, logger)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// backoff. Intended for tests that point at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, backoff Backoff, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if backoff == nil {
		backoff = DefaultBackoff
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: backoff,
		logger:  logger,
	}
}

// FetchRange returns the published suffix counts for prefix. Suffixes are
// uppercased; a missing or malformed count is read as zero.
func (c *Client) FetchRange(ctx context.Context, prefix string) (map[string]int, error) {
	if !fingerprint.IsPrefix(prefix) {
		return nil, fmt.Errorf("%w: %q", driven.ErrInvalidPrefix, prefix)
	}

	var lastErr error
	for attempt := range maxAttempts {
		counts, status, err := c.fetchOnce(ctx, prefix)
		if err == nil {
			return counts, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetching range %s: %w", prefix, ctx.Err())
		}

		rateLimited := status == http.StatusTooManyRequests
		lastErr = err
		c.logger.Debug("range fetch attempt failed",
			"prefix", prefix,
			"attempt", attempt+1,
			"status", status,
			"error", err,
		)

		if attempt == maxAttempts-1 {
			break
		}
		if err := sleep(ctx, c.backoff(attempt, rateLimited)); err != nil {
			return nil, fmt.Errorf("fetching range %s: %w", prefix, err)
		}
	}

	return nil, fmt.Errorf("fetching range %s after %d attempts: %w", prefix, maxAttempts, lastErr)
}

// fetchOnce performs a single attempt under its own timeout. The returned
// status is zero when no response was received.
func (c *Client) fetchOnce(ctx context.Context, prefix string) (map[string]int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resp.StatusCode, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	counts, err := ParseRange(bufio.NewScanner(resp.Body))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading range body: %w", err)
	}
	return counts, resp.StatusCode, nil
}

// ParseRange reads SUFFIX:COUNT lines. Lines without a suffix are skipped.
func ParseRange(sc *bufio.Scanner) (map[string]int, error) {
	counts := make(map[string]int)
	for sc.Scan() {
		suffix, count, _ := strings.Cut(sc.Text(), ":")
		suffix = strings.ToUpper(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 0 {
			n = 0
		}
		counts[suffix] = n
	}
	return counts, sc.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

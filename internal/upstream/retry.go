package upstream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// doWithRetry wraps the connect phase of a request with backoff. It retries
// transient network errors and 408/429/5xx statuses; once a 2xx response is
// in hand no mid-stream retry ever happens. Context cancellation ends the
// retry loop immediately.
func (c *Client) doWithRetry(ctx context.Context, do func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	attempts := c.cfg.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := do(ctx)
		switch {
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if !isTransient(err) {
				return nil, &UnreachableError{Err: err}
			}
			lastErr = err
			c.logger.Debug("transient upstream error, will retry",
				zap.Int("attempt", attempt+1), zap.Error(err))
		case !retryableStatus(resp.StatusCode):
			return resp, nil
		default:
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			wait := parseRetryAfter(resp)
			resp.Body.Close()
			if wait > 0 && attempt < attempts-1 {
				c.logger.Info("honoring Retry-After", zap.Duration("wait", wait))
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
		}

		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, backoff(c.cfg.BaseBackoff, attempt)); err != nil {
			return nil, err
		}
	}

	c.logger.Warn("upstream request exhausted retries",
		zap.Int("attempts", attempts), zap.Error(lastErr))
	return nil, &UnreachableError{Err: fmt.Errorf("max retries (%d) exceeded: %w", attempts, lastErr)}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoff is exponential with full jitter, capped at 5s.
func backoff(base time.Duration, attempt int) time.Duration {
	max := base << uint(attempt)
	if max > 5*time.Second {
		max = 5 * time.Second
	}
	return time.Duration(rand.Int63n(int64(max) + 1))
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write"
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"temporary failure",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// =============================================================================
// TTC Price Export - Download Client
// =============================================================================
//
// This module downloads the price table archives. It wraps a resty client
// configured with timeouts, a user agent and retries with backoff.
//
// RETRY POLICY:
//   - Network errors are retried, except unknown hosts
//   - 408, 409, 423, 429, 500, 502, 503 and 504 responses are retried
//   - Any other non-2xx response fails immediately
//
// =============================================================================

package download

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ttc-tools/ttc-price-export/internal/config"
	"github.com/ttc-tools/ttc-price-export/internal/logger"
)

// ErrUnexpectedStatus is matched by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// StatusError is returned when the final response is not a success.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d from %s", ErrUnexpectedStatus, e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Client downloads archives over HTTP.
type Client struct {
	resty  *resty.Client
	logger logger.Logger
}

// New creates a Client from the HTTP settings.
func New(cfg config.HTTPConfig, log logger.Logger) *Client {
	r := resty.New()
	r.SetHeader("User-Agent", cfg.UserAgent)
	r.SetTimeout(cfg.Timeout)
	r.SetRetryCount(cfg.RetryCount)
	r.SetRetryWaitTime(cfg.RetryWait)
	r.SetRetryMaxWaitTime(cfg.RetryMaxWait)
	r.AddRetryCondition(shouldRetry)
	r.AddRetryHook(func(res *resty.Response, err error) {
		attempt := 0
		if res != nil && res.Request != nil {
			attempt = res.Request.Attempt
		}
		if err != nil {
			log.Warn("Download attempt %d failed, retrying: %v", attempt, err)
			return
		}
		log.Warn("Download attempt %d returned %s, retrying", attempt, res.Status())
	})

	return &Client{resty: r, logger: log}
}

// Resty exposes the underlying client.
func (c *Client) Resty() *resty.Client {
	return c.resty
}

// Fetch downloads url and returns the response body.
//
// RETURNS:
//   - The body of the first successful response.
//   - A *StatusError when the last attempt was not a success, or the
//     transport error of the last attempt.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	res, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, &StatusError{URL: url, StatusCode: res.StatusCode()}
	}

	body := res.Body()
	c.logger.Debug("Downloaded %s (%d bytes) in %s", url, len(body), time.Since(start).Round(time.Millisecond))
	return body, nil
}

// shouldRetry retries network errors and transient HTTP statuses.
func shouldRetry(res *resty.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false
		}
		return true
	}
	if res == nil {
		return false
	}

	switch res.StatusCode() {
	case
		http.StatusRequestTimeout,
		http.StatusConflict,
		http.StatusLocked,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

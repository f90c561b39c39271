// Package upstream provides the HTTP plumbing shared by the geocoding and
// charging network clients: a pooled HTTP client, rate limiting, request
// metrics and the best-effort call helper.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cevatkerim/chargenow-mcp/pkg/observability"
	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
)

const (
	// Service names used for rate limiting and metrics
	ServiceGeocode   = "geocode"
	ServiceChargeNow = "chargenow"

	// BrowserUserAgent is sent on every upstream request
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxErrorBody caps how much of a failed response body ends up in an error
	maxErrorBody = 512
)

// StatusError is returned when an upstream service answers with a non-2xx status.
type StatusError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

// Request describes one JSON call against an upstream service.
type Request struct {
	Service   string
	Operation string
	Method    string
	URL       string
	Header    http.Header
	// Body is encoded as JSON when non-nil.
	Body any
}

// Client performs upstream requests with a shared connection pool.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *RateLimiter
	metrics    *observability.Metrics
	clock      clockwork.Clock
}

// NewClient creates an upstream client. A nil limiter disables rate limiting
// and nil metrics are replaced by an unregistered set.
func NewClient(timeout time.Duration, limiter *RateLimiter, metrics *observability.Metrics) *Client {
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		userAgent: BrowserUserAgent,
		limiter:   limiter,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}
}

// SetClock swaps the time source used for latency metrics. Pass nil to reset.
func (c *Client) SetClock(clock clockwork.Clock) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c.clock = clock
}

// Metrics returns the metrics the client records into.
func (c *Client) Metrics() *observability.Metrics {
	return c.metrics
}

// DoJSON sends r and decodes a 2xx JSON response into out.
func (c *Client) DoJSON(ctx context.Context, r Request, out any) error {
	err := c.doJSON(ctx, r, out)

	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeError
	}
	c.metrics.UpstreamRequests.WithLabelValues(r.Service, r.Operation, outcome).Inc()

	return err
}

func (c *Client) doJSON(ctx context.Context, r Request, out any) error {
	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return errors.Wrapf(err, "encode %s request", r.Operation)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return errors.Wrapf(err, "create %s request", r.Operation)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if err := c.limiter.Wait(ctx, r.Service); err != nil {
		return errors.Wrapf(err, "%s rate limit", r.Service)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(r.Service, r.Operation).Observe(c.clock.Since(start).Seconds())
	if err != nil {
		// url.Error repeats the full URL, query credentials included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return errors.Wrapf(err, "%s %s request", r.Service, r.Operation)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.WithStack(&StatusError{
			Service:    r.Service,
			Operation:  r.Operation,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(msg)),
		})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", r.Operation)
	}
	return nil
}

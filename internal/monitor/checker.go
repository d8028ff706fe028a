// Package monitor probes the public toyutoyu URLs for reachability and
// relays hard failures to the notifier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// probeUserAgent identifies the bot to the probed servers.
const probeUserAgent = "toyutoyu-suporter/1.0 (+https://toyutoyu.com)"

// StatusAborted is the sentinel status text for a probe stopped by our own
// timeout. Timing out is a signal to stop waiting, not a monitoring failure.
const StatusAborted = "aborted"

// ProbeResult is the outcome of one reachability check.
type ProbeResult struct {
	URL        string `json:"url"`
	OK         bool   `json:"ok"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Checker issues the HTTP probes.
type Checker struct {
	timeout    time.Duration
	httpClient *http.Client
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithTimeout sets the per-probe timeout.
func WithTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the probe HTTP client.
func WithHTTPClient(hc *http.Client) CheckerOption {
	return func(c *Checker) {
		c.httpClient = hc
	}
}

// NewChecker creates a Checker. Redirects are followed (the default client
// behavior); a redirect chain that ends in a 2xx counts as reachable.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		timeout:    10 * time.Second,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckOne probes a single URL. Classification:
//   - 2xx or 404: reachable. 404 is fine, the host answered.
//   - any other completed response: failure with the status recorded.
//   - our own timeout firing: reachable with the "aborted" sentinel.
//   - any other network error: failure with the error message recorded.
//
// The timeout case is detected from the probe context's deadline, not by
// catching every cancellation: a caller-cancelled context must not be
// mistaken for a slow target.
func (c *Checker) CheckOne(ctx context.Context, url string) ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{URL: url, OK: false, Error: err.Error()}
	}
	req.Header.Set("User-Agent", probeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ProbeResult{URL: url, OK: true, StatusText: StatusAborted}
		}
		return ProbeResult{URL: url, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	ok := (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusNotFound
	return ProbeResult{
		URL:        url,
		OK:         ok,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
}

// CheckAll probes every URL concurrently. Results come back in input order
// regardless of completion order, and one probe's failure never aborts the
// others. The second return value is the subset with OK == false.
func (c *Checker) CheckAll(ctx context.Context, urls []string) (results, failures []ProbeResult) {
	results = make([]ProbeResult, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			// A panicking probe still fills its result slot instead of
			// taking the whole pass down.
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = ProbeResult{URL: url, OK: false, Error: fmt.Sprintf("probe panic: %v", rec)}
				}
			}()
			results[i] = c.CheckOne(ctx, url)
		}(i, url)
	}
	wg.Wait()

	for _, r := range results {
		if !r.OK {
			failures = append(failures, r)
		}
	}
	return results, failures
}

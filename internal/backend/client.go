// Package backend is the client for the toyutoyu WordPress REST API used to
// verify member credentials and look up point balances.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	authCheckPath  = "/wp-json/toyutoyu/v1/auth-check"
	userPointsPath = "/wp-json/toyutoyu/v1/user-points"

	defaultTimeout = 10 * time.Second
)

// APIError is a declared (structured) failure from the backend: the request
// completed but the API answered with a non-2xx status. Status 401 means the
// credentials were rejected; anything else is an upstream problem.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Unauthorized reports whether the error is a credential rejection.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AuthResult is the auth-check response body.
type AuthResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

// Client talks to the toyutoyu backend.
type Client struct {
	baseURL       string
	webhookSecret string
	timeout       time.Duration
	httpClient    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithWebhookSecret sets the shared secret sent on auth-check requests. The
// header is optional; the WordPress side may not be configured to check it.
func WithWebhookSecret(secret string) Option {
	return func(c *Client) {
		c.webhookSecret = secret
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthCheck verifies an email/password pair. A rejected credential comes
// back as an *APIError with status 401, not as a transport error.
func (c *Client) AuthCheck(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal auth-check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authCheckPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: build auth-check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.webhookSecret != "" {
		req.Header.Set("x-toyutoyu-webhook-secret", c.webhookSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: auth-check request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read auth-check response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		slog.Debug("Client.AuthCheck: declared failure", "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}

	var result AuthResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("backend: auth-check returned non-json response: %w", err)
	}
	return &result, nil
}

// UserPoints fetches the point balance for an email. The backend may send
// the value as a number or a string; it is returned textual either way.
func (c *Client) UserPoints(ctx context.Context, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + userPointsPath + "?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("backend: build user-points request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend: user-points request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := readBody(resp.Body)
	if err != nil {
		return "", fmt.Errorf("backend: read user-points response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	var result struct {
		Points json.Number `json:"points"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		// Tolerate a string-typed points field.
		var alt struct {
			Points string `json:"points"`
		}
		if altErr := json.Unmarshal(raw, &alt); altErr != nil {
			return "", fmt.Errorf("backend: user-points returned non-json response: %w", err)
		}
		return alt.Points, nil
	}
	return result.Points.String(), nil
}

func readBody(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 1<<20))
}

// errorMessage pulls the "message" field out of an error body when there is
// one, falling back to the raw text. Bodies are not guaranteed to be JSON.
func errorMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}

// Package line provides a minimal LINE Messaging API client: reply, push and
// broadcast delivery, webhook payload types, and signature verification.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAPIBase is the LINE Messaging API endpoint prefix.
const DefaultAPIBase = "https://api.line.me"

// MaxMessagesPerCall is the platform cap on messages per reply/push call.
const MaxMessagesPerCall = 5

// Message is one outbound message object. Type is "text" or "image".
type Message struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

// TextMessage builds a text message.
func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// ImageMessage builds an image message. LINE requires both a content URL and
// a preview URL; the original asset doubles as its own preview here.
func ImageMessage(url string) Message {
	return Message{Type: "image", OriginalContentURL: url, PreviewImageURL: url}
}

// Client calls the LINE Messaging API with a channel access token.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIBase overrides the API endpoint prefix (used by tests).
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = base
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client for the given channel access token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		apiBase:    DefaultAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a channel access token is configured. Callers skip
// LINE delivery entirely when it is not.
func (c *Client) Enabled() bool {
	return c.token != ""
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type broadcastRequest struct {
	Messages []Message `json:"messages"`
}

// Reply sends messages on a one-time reply token. The token is consumed by
// the call whether or not delivery succeeds.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Push sends messages addressed to a user id.
func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: messages})
}

// Broadcast sends messages to every friend of the channel.
func (c *Client) Broadcast(ctx context.Context, messages []Message) error {
	return c.post(ctx, "/v2/bot/message/broadcast", broadcastRequest{Messages: messages})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("line: marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("Client.post: LINE API returned error status", "path", path, "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("line: %s failed: %d %s %s", path, resp.StatusCode, http.StatusText(resp.StatusCode), string(respBody))
	}
	return nil
}

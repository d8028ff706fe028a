package monitor

import (
	"context"
	"log/slog"

	"github.com/toyutoyu/supportbot/internal/line"
)

// Notifier fans a notification out to the log and, when a channel token is
// configured, to LINE — either a single recipient push or a broadcast.
type Notifier struct {
	lineClient *line.Client
	to         string
	broadcast  bool
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithLine enables LINE delivery to the given user id.
func WithLine(client *line.Client, to string) NotifierOption {
	return func(n *Notifier) {
		n.lineClient = client
		n.to = to
	}
}

// WithBroadcast switches LINE delivery from a single push to a broadcast.
func WithBroadcast(client *line.Client) NotifierOption {
	return func(n *Notifier) {
		n.lineClient = client
		n.broadcast = true
	}
}

// NewNotifier creates a Notifier. With no options it only logs.
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify logs the text, then attempts LINE delivery. A failed send is logged
// and returned but never retried.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	slog.Info("Notifier.Notify: notification", "text", text)

	if n.lineClient == nil || !n.lineClient.Enabled() {
		return nil
	}

	messages := []line.Message{line.TextMessage(text)}

	if n.broadcast {
		if err := n.lineClient.Broadcast(ctx, messages); err != nil {
			slog.Error("Notifier.Notify: broadcast failed", "error", err)
			return err
		}
		return nil
	}

	if n.to == "" {
		return nil
	}
	if err := n.lineClient.Push(ctx, n.to, messages); err != nil {
		slog.Error("Notifier.Notify: push failed", "error", err, "to", n.to)
		return err
	}
	return nil
}

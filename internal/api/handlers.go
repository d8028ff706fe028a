// Package api provides HTTP handlers for the support bot endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/toyutoyu/supportbot/internal/line"
)

// maxWebhookBody caps how much of a webhook delivery is read.
const maxWebhookBody = 1 << 20

// callbackHandler receives LINE webhook deliveries. The raw body is read
// before any parsing: the signature covers the exact bytes on the wire, and
// re-serializing parsed JSON would silently break verification. A valid
// delivery is acknowledged with 200 immediately; event processing happens
// afterward so a slow collaborator cannot trigger platform retries.
func (s *Server) callbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.callbackHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("Server.callbackHandler: failed to read body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(line.SignatureHeader)
	if !line.VerifySignature(s.channelSecret, body, signature) {
		slog.Warn("Server.callbackHandler: invalid signature", "signature_present", signature != "")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, "ok"); err != nil {
		slog.Error("Server.callbackHandler: failed to write ack", "error", err)
	}

	deliveryID := uuid.NewString()
	go s.processDelivery(deliveryID, body)
}

// processDelivery parses and dispatches a delivery's events sequentially.
// One event's failure (error or panic) is logged and never blocks the rest.
func (s *Server) processDelivery(deliveryID string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.eventTimeout)
	defer cancel()

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Error("Server.processDelivery: malformed webhook body", "error", err, "delivery_id", deliveryID)
		return
	}
	slog.Debug("Server.processDelivery: processing delivery", "delivery_id", deliveryID, "events", len(req.Events))

	for i, ev := range req.Events {
		if err := s.processEvent(ctx, ev); err != nil {
			slog.Error("Server.processDelivery: event handling failed", "error", err, "delivery_id", deliveryID, "event_index", i)
		}
	}
}

func (s *Server) processEvent(ctx context.Context, ev line.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("event handler panic: %v", rec)
		}
	}()
	return s.events.HandleEvent(ctx, ev)
}

// healthHandler answers liveness probes.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// rootHandler answers with a plaintext liveness line.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "toyutoyu-suporter is running")
}

// Package api provides the HTTP surface of the support bot: the LINE
// webhook callback, a health endpoint, and a plaintext liveness root.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/toyutoyu/supportbot/internal/line"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// EventHandler processes one webhook event. Implemented by the conversation
// handler; faked in tests.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev line.Event) error
}

// Server hosts the HTTP endpoints.
type Server struct {
	addr          string
	channelSecret string
	events        EventHandler
	httpServer    *http.Server

	// eventTimeout bounds the asynchronous processing of one delivery.
	eventTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithEventTimeout bounds asynchronous event processing per delivery.
func WithEventTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.eventTimeout = d
		}
	}
}

// NewServer creates a Server. channelSecret signs inbound webhooks; events
// receives each text event after the delivery has been acknowledged.
func NewServer(channelSecret string, events EventHandler, opts ...Option) *Server {
	s := &Server{
		addr:          DefaultAddr,
		channelSecret: channelSecret,
		events:        events,
		eventTimeout:  time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/callback", s.callbackHandler)
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	return s
}

// Handler exposes the route mux (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("Server.Run: listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

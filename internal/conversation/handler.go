// Package conversation implements the guided conversation engine behind the
// LINE webhook: intent routing, the two-step login flow, guided FAQ answers,
// point lookups, and the generative fallback.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toyutoyu/supportbot/internal/backend"
	"github.com/toyutoyu/supportbot/internal/line"
	"github.com/toyutoyu/supportbot/internal/session"
)

// Messenger is the outbound LINE delivery surface the handler needs.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []line.Message) error
	Push(ctx context.Context, to string, messages []line.Message) error
}

// AuthAPI is the backend credential/points surface.
type AuthAPI interface {
	AuthCheck(ctx context.Context, email, password string) (*backend.AuthResult, error)
	UserPoints(ctx context.Context, email string) (string, error)
}

// Responder is the generative fallback.
type Responder interface {
	Enabled() bool
	Generate(ctx context.Context, userText string) (string, error)
}

// Handler orchestrates the session store, the intent router and the outbound
// collaborators to produce replies for inbound text events.
type Handler struct {
	sessions  *session.Store
	messenger Messenger
	backend   AuthAPI
	responder Responder
}

// NewHandler creates a Handler.
func NewHandler(sessions *session.Store, messenger Messenger, authAPI AuthAPI, responder Responder) *Handler {
	return &Handler{
		sessions:  sessions,
		messenger: messenger,
		backend:   authAPI,
		responder: responder,
	}
}

// HandleEvent processes one webhook event. Non-text events are ignored.
// Collaborator failures are normalized to user-safe replies; the returned
// error is for logging only and carries no user-visible consequence.
func (h *Handler) HandleEvent(ctx context.Context, ev line.Event) error {
	if !ev.IsTextMessage() {
		slog.Debug("Handler.HandleEvent: ignoring non-text event", "type", ev.Type, "message_type", ev.Message.Type)
		return nil
	}

	normalized := Normalize(ev.Message.Text)
	if normalized == "" {
		return nil
	}

	userID := ev.Source.UserID
	if userID == "" {
		// Group/room message without an individual identity; sessions are
		// keyed by user, so the flow only works one-to-one.
		return h.replyText(ctx, ev.ReplyToken, msgUseOneToOne)
	}

	sess := h.sessions.Get(userID)
	aiEnabled := h.responder != nil && h.responder.Enabled()
	decision := Route(normalized, sess, aiEnabled)
	slog.Debug("Handler.HandleEvent: routed", "user_id", userID, "action", decision.Action, "state", sessionState(sess))

	switch decision.Action {
	case ActionNone:
		return nil
	case ActionCancel:
		h.sessions.Clear(userID)
		return h.replyText(ctx, ev.ReplyToken, msgCancelled)
	case ActionStartLogin:
		h.sessions.StartLoginFlow(userID)
		return h.replyText(ctx, ev.ReplyToken, msgPromptEmail)
	case ActionPoints:
		return h.handlePoints(ctx, ev.ReplyToken, sess)
	case ActionAwaitEmail:
		return h.handleEmailStep(ctx, ev.ReplyToken, userID, normalized)
	case ActionAwaitPassword:
		return h.handlePasswordStep(ctx, ev.ReplyToken, userID, sess, strings.TrimSpace(ev.Message.Text))
	case ActionFAQ:
		slog.Info("Handler.HandleEvent: guided FAQ answer", "user_id", userID, "faq_key", decision.FAQ.Key)
		return h.replyWithImages(ctx, userID, ev.ReplyToken, decision.FAQ.Text, decision.FAQ.ImageURLs)
	case ActionPasswordHelp:
		return h.replyText(ctx, ev.ReplyToken, msgPasswordHelp)
	case ActionAI:
		return h.handleAI(ctx, ev.ReplyToken, userID, ev.Message.Text)
	case ActionUsage:
		return h.replyText(ctx, ev.ReplyToken, msgUsage)
	default:
		return fmt.Errorf("conversation: unhandled action %d", decision.Action)
	}
}

// handlePoints answers the points command. Requires a logged-in session; the
// backend is never called without one.
func (h *Handler) handlePoints(ctx context.Context, replyToken string, sess *session.Session) error {
	if sess == nil || !sess.LoggedIn() {
		return h.replyText(ctx, replyToken, msgLoginRequired)
	}

	points, err := h.backend.UserPoints(ctx, sess.Email)
	if err != nil {
		slog.Error("Handler.handlePoints: points lookup failed", "error", err)
		return h.replyText(ctx, replyToken, msgPointsFailed)
	}
	return h.replyText(ctx, replyToken, fmt.Sprintf(msgPointsFormat, points))
}

// handleEmailStep validates the email shape and advances the flow. A bad
// shape reprompts without touching the session.
func (h *Handler) handleEmailStep(ctx context.Context, replyToken, userID, email string) error {
	if !validEmailShape(email) {
		return h.replyText(ctx, replyToken, msgInvalidEmail)
	}
	h.sessions.SetAwaitPassword(userID, email)
	return h.replyText(ctx, replyToken, msgPromptPassword)
}

// handlePasswordStep runs the credential check. A declared rejection (401 or
// success=false) and a transport/server error get different canned replies;
// neither reveals which field was wrong or any raw error text.
func (h *Handler) handlePasswordStep(ctx context.Context, replyToken, userID string, sess *session.Session, password string) error {
	result, err := h.backend.AuthCheck(ctx, sess.Email, password)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			slog.Info("Handler.handlePasswordStep: credentials rejected", "user_id", userID)
			h.sessions.Clear(userID)
			return h.replyText(ctx, replyToken, msgInvalidCredentials)
		}
		slog.Error("Handler.handlePasswordStep: auth-check failed", "error", err, "user_id", userID)
		return h.replyText(ctx, replyToken, msgAuthError)
	}

	if !result.Success {
		slog.Info("Handler.handlePasswordStep: auth declared unsuccessful", "user_id", userID)
		h.sessions.Clear(userID)
		return h.replyText(ctx, replyToken, msgInvalidCredentials)
	}

	h.sessions.SetLoggedIn(userID, sess.Email, result.UserID)
	slog.Info("Handler.handlePasswordStep: login succeeded", "user_id", userID)
	return h.replyText(ctx, replyToken, msgLoginSuccess)
}

// handleAI asks the generative responder. Failures are logged and answered
// with the fixed busy message.
func (h *Handler) handleAI(ctx context.Context, replyToken, userID, text string) error {
	answer, err := h.responder.Generate(ctx, text)
	if err != nil {
		slog.Error("Handler.handleAI: generation failed", "error", err, "user_id", userID)
		return h.replyText(ctx, replyToken, msgAIBusy)
	}
	return h.replyText(ctx, replyToken, answer)
}

// replyWithImages sends a text message followed by one image message per
// URL, in batches no larger than the platform cap. The first batch consumes
// the reply token; reply tokens are single-use, so every later batch goes
// out as a push to the user.
func (h *Handler) replyWithImages(ctx context.Context, userID, replyToken, text string, imageURLs []string) error {
	messages := make([]line.Message, 0, 1+len(imageURLs))
	messages = append(messages, line.TextMessage(text))
	for _, url := range imageURLs {
		messages = append(messages, line.ImageMessage(url))
	}

	for start := 0; start < len(messages); start += line.MaxMessagesPerCall {
		end := min(start+line.MaxMessagesPerCall, len(messages))
		batch := messages[start:end]

		var err error
		if start == 0 {
			err = h.messenger.Reply(ctx, replyToken, batch)
		} else {
			err = h.messenger.Push(ctx, userID, batch)
		}
		if err != nil {
			return fmt.Errorf("conversation: send message batch: %w", err)
		}
	}
	return nil
}

func (h *Handler) replyText(ctx context.Context, replyToken, text string) error {
	if err := h.messenger.Reply(ctx, replyToken, []line.Message{line.TextMessage(text)}); err != nil {
		return fmt.Errorf("conversation: reply: %w", err)
	}
	return nil
}

// validEmailShape is a syntactic check only: exactly one @, a non-empty
// local part, and a domain containing a dot. The backend does the real
// verification.
func validEmailShape(s string) bool {
	if strings.Count(s, "@") != 1 {
		return false
	}
	at := strings.Index(s, "@")
	local, domain := s[:at], s[at+1:]
	return local != "" && domain != "" && strings.Contains(domain, ".")
}

func sessionState(sess *session.Session) string {
	if sess == nil {
		return "idle"
	}
	if sess.State == session.StateLogin {
		return string(sess.State) + "/" + string(sess.Step)
	}
	return string(sess.State)
}

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/toyutoyu/supportbot/internal/backend"
	"github.com/toyutoyu/supportbot/internal/line"
	"github.com/toyutoyu/supportbot/internal/session"
)

type sentBatch struct {
	target   string // reply token or user id
	messages []line.Message
}

type fakeMessenger struct {
	replies  []sentBatch
	pushes   []sentBatch
	replyErr error
}

func (m *fakeMessenger) Reply(ctx context.Context, replyToken string, messages []line.Message) error {
	if m.replyErr != nil {
		return m.replyErr
	}
	m.replies = append(m.replies, sentBatch{target: replyToken, messages: messages})
	return nil
}

func (m *fakeMessenger) Push(ctx context.Context, to string, messages []line.Message) error {
	m.pushes = append(m.pushes, sentBatch{target: to, messages: messages})
	return nil
}

func (m *fakeMessenger) lastReplyText(t *testing.T) string {
	t.Helper()
	if len(m.replies) == 0 {
		t.Fatal("no reply sent")
	}
	batch := m.replies[len(m.replies)-1]
	if len(batch.messages) == 0 {
		t.Fatal("empty reply batch")
	}
	return batch.messages[0].Text
}

type fakeAuthAPI struct {
	authCalls   int
	pointsCalls int

	authResult *backend.AuthResult
	authErr    error
	points     string
	pointsErr  error

	lastEmail    string
	lastPassword string
}

func (a *fakeAuthAPI) AuthCheck(ctx context.Context, email, password string) (*backend.AuthResult, error) {
	a.authCalls++
	a.lastEmail, a.lastPassword = email, password
	return a.authResult, a.authErr
}

func (a *fakeAuthAPI) UserPoints(ctx context.Context, email string) (string, error) {
	a.pointsCalls++
	a.lastEmail = email
	return a.points, a.pointsErr
}

type fakeResponder struct {
	enabled bool
	answer  string
	err     error
	calls   int
}

func (r *fakeResponder) Enabled() bool { return r.enabled }

func (r *fakeResponder) Generate(ctx context.Context, userText string) (string, error) {
	r.calls++
	return r.answer, r.err
}

func textEvent(userID, text string) line.Event {
	return line.Event{
		Type:       "message",
		ReplyToken: "rt-" + userID,
		Message:    line.EventMessage{Type: "text", Text: text},
		Source:     line.EventSource{Type: "user", UserID: userID},
	}
}

func newTestHandler() (*Handler, *session.Store, *fakeMessenger, *fakeAuthAPI, *fakeResponder) {
	store := session.NewStore()
	messenger := &fakeMessenger{}
	authAPI := &fakeAuthAPI{}
	responder := &fakeResponder{enabled: true, answer: "AIの回答です"}
	return NewHandler(store, messenger, authAPI, responder), store, messenger, authAPI, responder
}

func TestHandleEventIgnoresNonTextEvents(t *testing.T) {
	h, _, messenger, _, _ := newTestHandler()
	ev := line.Event{Type: "message", Message: line.EventMessage{Type: "sticker"}, Source: line.EventSource{UserID: "U1"}}
	if err := h.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messenger.replies) != 0 {
		t.Error("non-text event should produce no reply")
	}
}

func TestHandleEventDropsEmptyText(t *testing.T) {
	h, _, messenger, _, _ := newTestHandler()
	if err := h.HandleEvent(context.Background(), textEvent("U1", "   ")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messenger.replies) != 0 {
		t.Error("whitespace-only text should be silently dropped")
	}
}

func TestHandleEventMissingUserID(t *testing.T) {
	h, _, messenger, _, _ := newTestHandler()
	ev := line.Event{
		Type:       "message",
		ReplyToken: "rt-group",
		Message:    line.EventMessage{Type: "text", Text: "ログイン"},
		Source:     line.EventSource{Type: "group", GroupID: "G1"},
	}
	if err := h.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgUseOneToOne {
		t.Errorf("expected one-to-one instruction, got %q", messenger.lastReplyText(t))
	}
}

func TestLoginFlowScenario(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	ctx := context.Background()
	authAPI.authResult = &backend.AuthResult{Success: true, UserID: "wp-7"}

	// "login" prompts for the email and opens the flow.
	if err := h.HandleEvent(ctx, textEvent("U1", "ログイン")); err != nil {
		t.Fatalf("login command: %v", err)
	}
	if messenger.lastReplyText(t) != msgPromptEmail {
		t.Errorf("expected email prompt, got %q", messenger.lastReplyText(t))
	}
	if sess := store.Get("U1"); sess == nil || !sess.AwaitingEmail() {
		t.Fatalf("expected await_email session, got %+v", sess)
	}

	// A malformed email reprompts without advancing.
	if err := h.HandleEvent(ctx, textEvent("U1", "not-an-email")); err != nil {
		t.Fatalf("bad email: %v", err)
	}
	if messenger.lastReplyText(t) != msgInvalidEmail {
		t.Errorf("expected invalid-email reprompt, got %q", messenger.lastReplyText(t))
	}
	if sess := store.Get("U1"); !sess.AwaitingEmail() {
		t.Errorf("session must stay in await_email, got %+v", sess)
	}

	// A valid email advances to the password step.
	if err := h.HandleEvent(ctx, textEvent("U1", "user@example.com")); err != nil {
		t.Fatalf("good email: %v", err)
	}
	if messenger.lastReplyText(t) != msgPromptPassword {
		t.Errorf("expected password prompt, got %q", messenger.lastReplyText(t))
	}
	if sess := store.Get("U1"); !sess.AwaitingPassword() || sess.Email != "user@example.com" {
		t.Fatalf("expected await_password with email, got %+v", sess)
	}

	// The password promotes the session on declared success.
	if err := h.HandleEvent(ctx, textEvent("U1", "hunter2")); err != nil {
		t.Fatalf("password: %v", err)
	}
	if messenger.lastReplyText(t) != msgLoginSuccess {
		t.Errorf("expected login success, got %q", messenger.lastReplyText(t))
	}
	if authAPI.lastEmail != "user@example.com" || authAPI.lastPassword != "hunter2" {
		t.Errorf("auth-check called with %q/%q", authAPI.lastEmail, authAPI.lastPassword)
	}
	sess := store.Get("U1")
	if sess == nil || !sess.LoggedIn() || sess.BackendUserID != "wp-7" {
		t.Fatalf("expected logged_in session with backend id, got %+v", sess)
	}
}

func TestInvalidEmailVariants(t *testing.T) {
	for _, email := range []string{"no-at-sign", "two@@example.com", "a@b@c.com", "@example.com", "user@", "user@nodot"} {
		if validEmailShape(email) {
			t.Errorf("email %q should be rejected", email)
		}
	}
	for _, email := range []string{"user@example.com", "a@b.co", "user+tag@mail.example.jp"} {
		if !validEmailShape(email) {
			t.Errorf("email %q should be accepted", email)
		}
	}
}

func TestPasswordStepInvalidCredentials(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	ctx := context.Background()
	store.SetAwaitPassword("U1", "user@example.com")
	authAPI.authErr = &backend.APIError{Status: 401, Message: "bad credentials"}

	if err := h.HandleEvent(ctx, textEvent("U1", "wrongpw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := messenger.lastReplyText(t)
	if reply != msgInvalidCredentials {
		t.Errorf("expected invalid-credentials reply, got %q", reply)
	}
	if strings.Contains(reply, "bad credentials") {
		t.Error("raw backend error must never reach the user")
	}
}

func TestPasswordStepDeclaredUnsuccessful(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	store.SetAwaitPassword("U1", "user@example.com")
	authAPI.authResult = &backend.AuthResult{Success: false}

	if err := h.HandleEvent(context.Background(), textEvent("U1", "pw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgInvalidCredentials {
		t.Errorf("success=false should read as invalid credentials, got %q", messenger.lastReplyText(t))
	}
}

func TestPasswordStepTransportError(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	store.SetAwaitPassword("U1", "user@example.com")
	authAPI.authErr = errors.New("dial tcp: connection refused")

	if err := h.HandleEvent(context.Background(), textEvent("U1", "pw")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := messenger.lastReplyText(t)
	if reply != msgAuthError {
		t.Errorf("expected generic auth error, got %q", reply)
	}
	if strings.Contains(reply, "dial tcp") {
		t.Error("raw transport error must never reach the user")
	}
}

func TestPasswordResetOverrideDuringPasswordStep(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	store.SetAwaitPassword("U1", "user@example.com")

	if err := h.HandleEvent(context.Background(), textEvent("U1", "パスワードを忘れました")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authAPI.authCalls != 0 {
		t.Error("reset question must not be sent to auth-check as a password")
	}
	if !strings.Contains(messenger.lastReplyText(t), "再設定") {
		t.Errorf("expected the reset FAQ answer, got %q", messenger.lastReplyText(t))
	}
}

func TestPointsRequiresLogin(t *testing.T) {
	h, _, messenger, authAPI, _ := newTestHandler()
	if err := h.HandleEvent(context.Background(), textEvent("U1", "ポイント")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgLoginRequired {
		t.Errorf("expected login-required reply, got %q", messenger.lastReplyText(t))
	}
	if authAPI.pointsCalls != 0 {
		t.Error("points lookup must not be called without a login")
	}
}

func TestPointsLoggedIn(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	store.SetLoggedIn("U1", "user@example.com", "wp-7")
	authAPI.points = "1250"

	if err := h.HandleEvent(context.Background(), textEvent("U1", "ポイント")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := fmt.Sprintf(msgPointsFormat, "1250")
	if messenger.lastReplyText(t) != want {
		t.Errorf("expected %q, got %q", want, messenger.lastReplyText(t))
	}
	if authAPI.lastEmail != "user@example.com" {
		t.Errorf("lookup used wrong email: %q", authAPI.lastEmail)
	}
}

func TestPointsLookupFailure(t *testing.T) {
	h, store, messenger, authAPI, _ := newTestHandler()
	store.SetLoggedIn("U1", "user@example.com", "wp-7")
	authAPI.pointsErr = errors.New("boom")

	if err := h.HandleEvent(context.Background(), textEvent("U1", "points")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgPointsFailed {
		t.Errorf("expected generic failure reply, got %q", messenger.lastReplyText(t))
	}
}

func TestCancelClearsSession(t *testing.T) {
	h, store, messenger, _, _ := newTestHandler()
	store.StartLoginFlow("U1")

	if err := h.HandleEvent(context.Background(), textEvent("U1", "キャンセル")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgCancelled {
		t.Errorf("expected cancel confirmation, got %q", messenger.lastReplyText(t))
	}
	if store.Get("U1") != nil {
		t.Error("session should be cleared on cancel")
	}
}

func TestFAQReplyWithImages(t *testing.T) {
	h, _, messenger, _, _ := newTestHandler()
	if err := h.HandleEvent(context.Background(), textEvent("U1", "支払い方法を教えて")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messenger.replies) != 1 {
		t.Fatalf("expected one reply batch, got %d", len(messenger.replies))
	}
	batch := messenger.replies[0].messages
	if batch[0].Type != "text" {
		t.Error("first message must be the text answer")
	}
	for _, m := range batch[1:] {
		if m.Type != "image" {
			t.Errorf("expected image messages after the text, got %q", m.Type)
		}
	}
	if len(messenger.pushes) != 0 {
		t.Error("a batch within the cap needs no push")
	}
}

func TestReplyWithImagesChunksAcrossCap(t *testing.T) {
	h, _, messenger, _, _ := newTestHandler()
	urls := make([]string, 7) // 8 messages total with the text
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d.png", i)
	}

	if err := h.replyWithImages(context.Background(), "U1", "rt-1", "answer", urls); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messenger.replies) != 1 {
		t.Fatalf("expected exactly one reply batch, got %d", len(messenger.replies))
	}
	if got := len(messenger.replies[0].messages); got != line.MaxMessagesPerCall {
		t.Errorf("first batch should fill the cap, got %d", got)
	}
	if len(messenger.pushes) != 1 {
		t.Fatalf("overflow must go out as one push batch, got %d", len(messenger.pushes))
	}
	if messenger.pushes[0].target != "U1" {
		t.Errorf("push must target the user id, got %q", messenger.pushes[0].target)
	}
	if got := len(messenger.pushes[0].messages); got != 3 {
		t.Errorf("expected 3 overflow messages, got %d", got)
	}
}

func TestAIFallback(t *testing.T) {
	h, _, messenger, _, responder := newTestHandler()
	if err := h.HandleEvent(context.Background(), textEvent("U1", "営業時間を教えてください")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responder.calls != 1 {
		t.Errorf("expected one generation call, got %d", responder.calls)
	}
	if messenger.lastReplyText(t) != "AIの回答です" {
		t.Errorf("expected AI answer, got %q", messenger.lastReplyText(t))
	}
}

func TestAIFailureGetsBusyReply(t *testing.T) {
	h, _, messenger, _, responder := newTestHandler()
	responder.err = errors.New("rate limited")

	if err := h.HandleEvent(context.Background(), textEvent("U1", "営業時間を教えてください")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := messenger.lastReplyText(t)
	if reply != msgAIBusy {
		t.Errorf("expected busy reply, got %q", reply)
	}
	if strings.Contains(reply, "rate limited") {
		t.Error("raw AI error must never reach the user")
	}
}

func TestUsageWhenAIDisabled(t *testing.T) {
	h, _, messenger, _, responder := newTestHandler()
	responder.enabled = false

	if err := h.HandleEvent(context.Background(), textEvent("U1", "営業時間を教えてください")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messenger.lastReplyText(t) != msgUsage {
		t.Errorf("expected usage instructions, got %q", messenger.lastReplyText(t))
	}
	if responder.calls != 0 {
		t.Error("disabled responder must not be called")
	}
}

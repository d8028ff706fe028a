package session

import (
	"testing"
	"time"
)

func TestGetMissingUser(t *testing.T) {
	s := NewStore()
	if sess := s.Get("U1"); sess != nil {
		t.Errorf("expected nil session for unknown user, got %+v", sess)
	}
}

func TestLoginFlowLifecycle(t *testing.T) {
	s := NewStore()

	sess := s.StartLoginFlow("U1")
	if !sess.AwaitingEmail() {
		t.Fatalf("expected await_email session, got %+v", sess)
	}
	if sess.Email != "" || sess.BackendUserID != "" {
		t.Errorf("fresh login session should carry no identity: %+v", sess)
	}

	sess = s.SetAwaitPassword("U1", "user@example.com")
	if !sess.AwaitingPassword() {
		t.Fatalf("expected await_password session, got %+v", sess)
	}
	if sess.Email != "user@example.com" {
		t.Errorf("await_password session must carry the email, got %q", sess.Email)
	}

	sess = s.SetLoggedIn("U1", "user@example.com", "wp-42")
	if !sess.LoggedIn() {
		t.Fatalf("expected logged_in session, got %+v", sess)
	}
	if sess.BackendUserID != "wp-42" {
		t.Errorf("unexpected backend user id: %q", sess.BackendUserID)
	}
	if sess.Step != "" {
		t.Errorf("logged_in session should have no step, got %q", sess.Step)
	}

	got := s.Get("U1")
	if got == nil || !got.LoggedIn() {
		t.Errorf("expected stored logged_in session, got %+v", got)
	}
}

func TestClearRemovesSession(t *testing.T) {
	s := NewStore()
	s.StartLoginFlow("U1")
	s.Clear("U1")
	if sess := s.Get("U1"); sess != nil {
		t.Errorf("expected no session after Clear, got %+v", sess)
	}
	// Clearing a missing session is a no-op.
	s.Clear("U2")
}

func TestStartLoginFlowOverwritesExisting(t *testing.T) {
	s := NewStore()
	s.SetLoggedIn("U1", "user@example.com", "wp-42")
	sess := s.StartLoginFlow("U1")
	if !sess.AwaitingEmail() {
		t.Fatalf("expected fresh await_email session, got %+v", sess)
	}
	if got := s.Get("U1"); !got.AwaitingEmail() {
		t.Errorf("store should hold the new session, got %+v", got)
	}
}

func TestExpiredSessionIndistinguishableFromMissing(t *testing.T) {
	s := NewStore(WithLoginFlowTTL(10 * time.Millisecond))
	s.StartLoginFlow("U1")
	time.Sleep(30 * time.Millisecond)
	if sess := s.Get("U1"); sess != nil {
		t.Errorf("expected expired session to read as missing, got %+v", sess)
	}
}

func TestIndependentTTLs(t *testing.T) {
	s := NewStore(WithLoginFlowTTL(10*time.Millisecond), WithLoggedInTTL(time.Hour))
	s.SetLoggedIn("U1", "user@example.com", "wp-1")
	time.Sleep(30 * time.Millisecond)
	if sess := s.Get("U1"); sess == nil {
		t.Error("logged_in session should outlive the login-flow TTL")
	}
}

func TestWriteRestartsTTLWindow(t *testing.T) {
	s := NewStore(WithLoginFlowTTL(60 * time.Millisecond))
	s.StartLoginFlow("U1")
	time.Sleep(40 * time.Millisecond)
	// Advancing the flow opens a fresh window rather than extending the old one.
	s.SetAwaitPassword("U1", "user@example.com")
	time.Sleep(40 * time.Millisecond)
	if sess := s.Get("U1"); sess == nil || !sess.AwaitingPassword() {
		t.Errorf("expected session alive in the fresh TTL window, got %+v", sess)
	}
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	s := NewStore()
	s.StartLoginFlow("U1")
	s.SetLoggedIn("U2", "other@example.com", "wp-2")
	if !s.Get("U1").AwaitingEmail() {
		t.Error("U1 session clobbered")
	}
	if !s.Get("U2").LoggedIn() {
		t.Error("U2 session clobbered")
	}
	s.Clear("U1")
	if s.Get("U2") == nil {
		t.Error("clearing U1 must not touch U2")
	}
}

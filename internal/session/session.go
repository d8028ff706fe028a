// Package session holds per-user conversation state for the login flow.
//
// A user is in exactly one of three states: idle (no entry in the store),
// mid login flow, or logged in. Sessions only change through the explicit
// store operations; there is no in-place mutation.
package session

// State is the coarse session state. Idle is represented by the absence of a
// session, so only the two active states exist as values.
type State string

const (
	// StateLogin means the user is inside the two-step credential flow.
	StateLogin State = "login"
	// StateLoggedIn means credentials were verified against the backend.
	StateLoggedIn State = "logged_in"
)

// Step is the position inside the login flow. Only meaningful while
// State == StateLogin.
type Step string

const (
	// StepAwaitEmail means the bot is waiting for the user's email address.
	StepAwaitEmail Step = "await_email"
	// StepAwaitPassword means the email was accepted and the bot is waiting
	// for the password. Sessions in this step always carry the email.
	StepAwaitPassword Step = "await_password"
)

// Session is one user's conversation state. Values are immutable once
// stored; the store replaces the whole session on every transition.
type Session struct {
	State         State
	Step          Step
	Email         string
	BackendUserID string
}

// AwaitingEmail reports whether the session expects an email address next.
func (s *Session) AwaitingEmail() bool {
	return s.State == StateLogin && s.Step == StepAwaitEmail
}

// AwaitingPassword reports whether the session expects a password next.
func (s *Session) AwaitingPassword() bool {
	return s.State == StateLogin && s.Step == StepAwaitPassword
}

// LoggedIn reports whether the session represents a verified login.
func (s *Session) LoggedIn() bool {
	return s.State == StateLoggedIn
}

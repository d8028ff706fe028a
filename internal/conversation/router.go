package conversation

import (
	"strings"

	"github.com/toyutoyu/supportbot/internal/session"
)

// Action is the single handling branch chosen for an inbound message.
type Action int

const (
	// ActionNone drops the message without replying.
	ActionNone Action = iota
	// ActionCancel clears the session and confirms.
	ActionCancel
	// ActionStartLogin begins the login flow and prompts for an email.
	ActionStartLogin
	// ActionPoints looks up the point balance (login required).
	ActionPoints
	// ActionAwaitEmail treats the text as the email step of the login flow.
	ActionAwaitEmail
	// ActionAwaitPassword treats the text as the password step.
	ActionAwaitPassword
	// ActionFAQ answers with the matched guided entry.
	ActionFAQ
	// ActionPasswordHelp redirects password-topic messages to login
	// instructions instead of the AI responder.
	ActionPasswordHelp
	// ActionAI routes the text to the generative responder.
	ActionAI
	// ActionUsage replies with the canned usage instructions.
	ActionUsage
)

// Decision is the router's verdict; FAQ is set only for ActionFAQ.
type Decision struct {
	Action Action
	FAQ    *FAQEntry
}

// Normalize lowercases and trims a message for classification. Matching and
// command comparison always run on the normalized form; the raw text is kept
// for password input.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Route classifies a normalized message into exactly one handling branch
// given the current session. Precedence, top to bottom:
//
//  1. empty text: drop
//  2. command keywords (cancel / login / points)
//  3. login-flow steps, with one exception: mid await_password, text that
//     matches the password-reset FAQ answers that entry instead of being
//     treated as a password attempt (users often type the question there)
//  4. guided FAQ
//  5. password-topic redirect
//  6. AI responder, when configured and the text is eligible
//  7. usage instructions
func Route(normalized string, sess *session.Session, aiEnabled bool) Decision {
	if normalized == "" {
		return Decision{Action: ActionNone}
	}

	switch {
	case isCommand(normalized, "cancel", "キャンセル"):
		return Decision{Action: ActionCancel}
	case isCommand(normalized, "login", "ログイン"):
		return Decision{Action: ActionStartLogin}
	case isCommand(normalized, "points", "ポイント"):
		return Decision{Action: ActionPoints}
	}

	if sess != nil {
		if sess.AwaitingEmail() {
			return Decision{Action: ActionAwaitEmail}
		}
		if sess.AwaitingPassword() {
			if entry := MatchFAQ(normalized); entry != nil && entry.Key == faqKeyPasswordReset {
				return Decision{Action: ActionFAQ, FAQ: entry}
			}
			return Decision{Action: ActionAwaitPassword}
		}
	}

	if entry := MatchFAQ(normalized); entry != nil {
		return Decision{Action: ActionFAQ, FAQ: entry}
	}

	// Password-adjacent phrasing never reaches the AI responder, even when
	// one is configured.
	if mentionsPassword(normalized) {
		return Decision{Action: ActionPasswordHelp}
	}

	if aiEnabled && aiEligible(normalized) {
		return Decision{Action: ActionAI}
	}
	return Decision{Action: ActionUsage}
}

func isCommand(normalized string, words ...string) bool {
	for _, w := range words {
		if normalized == w {
			return true
		}
	}
	return false
}

// aiEligible rejects command-like text so near-miss commands ("login please")
// get the usage instructions rather than an AI improvisation.
func aiEligible(normalized string) bool {
	return !containsAny(normalized, "login", "ログイン", "points", "ポイント", "cancel", "キャンセル")
}

package session

import (
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Default TTLs mirror a short login window and a longer logged-in window.
const (
	DefaultLoginFlowTTL = 10 * time.Minute
	DefaultLoggedInTTL  = time.Hour
)

// Store keeps sessions in memory, keyed by the platform user id. Entries
// expire independently: login-flow sessions on a short TTL, logged-in
// sessions on a longer one. An expired session is indistinguishable from no
// session. Nothing survives a process restart.
type Store struct {
	loginFlowTTL time.Duration
	loggedInTTL  time.Duration
	cache        *gocache.Cache
}

// Option configures a Store.
type Option func(*Store)

// WithLoginFlowTTL sets the TTL applied while a user is mid login flow.
func WithLoginFlowTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.loginFlowTTL = d
		}
	}
}

// WithLoggedInTTL sets the TTL applied once a user is logged in.
func WithLoggedInTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.loggedInTTL = d
		}
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		loginFlowTTL: DefaultLoginFlowTTL,
		loggedInTTL:  DefaultLoggedInTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	// go-cache evicts lazily on Get; the janitor sweeps leftovers so
	// abandoned sessions do not accumulate.
	s.cache = gocache.New(s.loginFlowTTL, time.Minute)
	return s
}

// Get returns the user's session, or nil if absent or expired.
func (s *Store) Get(userID string) *Session {
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil
	}
	sess := v.(Session)
	return &sess
}

// StartLoginFlow replaces any existing session with a fresh await-email
// session on the login-flow TTL.
func (s *Store) StartLoginFlow(userID string) *Session {
	sess := Session{State: StateLogin, Step: StepAwaitEmail}
	s.cache.Set(userID, sess, s.loginFlowTTL)
	slog.Debug("Store.StartLoginFlow: session created", "user_id", userID, "ttl", s.loginFlowTTL)
	return &sess
}

// SetAwaitPassword advances the user to the password step, carrying the
// validated email. The TTL window restarts rather than continuing the
// previous one.
func (s *Store) SetAwaitPassword(userID, email string) *Session {
	sess := Session{State: StateLogin, Step: StepAwaitPassword, Email: email}
	s.cache.Set(userID, sess, s.loginFlowTTL)
	slog.Debug("Store.SetAwaitPassword: session advanced", "user_id", userID)
	return &sess
}

// SetLoggedIn replaces the session wholesale with a logged-in session on the
// longer TTL, capturing the backend user id.
func (s *Store) SetLoggedIn(userID, email, backendUserID string) *Session {
	sess := Session{State: StateLoggedIn, Email: email, BackendUserID: backendUserID}
	s.cache.Set(userID, sess, s.loggedInTTL)
	slog.Debug("Store.SetLoggedIn: session promoted", "user_id", userID, "ttl", s.loggedInTTL)
	return &sess
}

// Clear deletes the user's session unconditionally.
func (s *Store) Clear(userID string) {
	s.cache.Delete(userID)
	slog.Debug("Store.Clear: session cleared", "user_id", userID)
}

package eduauth

import (
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidTransition is returned when a requested auth state change is
// not allowed.
var ErrInvalidTransition = goerrors.New("invalid auth state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// AuthStatus tags the auth state machine's current phase.
type AuthStatus string

const (
	StatusUnauthenticated AuthStatus = "unauthenticated"
	StatusAuthenticating  AuthStatus = "authenticating"
	StatusAuthenticated   AuthStatus = "authenticated"
)

// AuthState is an immutable snapshot of the machine. The user and token
// are only ever set together with the authenticated status, so composite
// illegal states (loading while authenticated, a user without a token)
// cannot be represented.
type AuthState struct {
	status AuthStatus
	user   *User
	token  string
}

func (s AuthState) Status() AuthStatus { return s.status }

// User returns the authenticated user, nil in every other state.
func (s AuthState) User() *User { return s.user }

// Token returns the bearer token bound to the authenticated state.
func (s AuthState) Token() string { return s.token }

func (s AuthState) IsAuthenticated() bool { return s.status == StatusAuthenticated }

// Loading reports whether an auth attempt is in flight.
func (s AuthState) Loading() bool { return s.status == StatusAuthenticating }

// AuthMachine owns the auth state and validates every transition against
// a fixed table, the way account lifecycle machines do. All methods are
// safe for concurrent use; ordering between racing actions is last write
// wins.
type AuthMachine struct {
	mu          sync.Mutex
	state       AuthState
	transitions map[AuthStatus]map[AuthStatus]struct{}
	logger      Logger
}

func NewAuthMachine() *AuthMachine {
	return &AuthMachine{
		state: AuthState{status: StatusUnauthenticated},
		transitions: map[AuthStatus]map[AuthStatus]struct{}{
			StatusUnauthenticated: {
				StatusAuthenticating: {},
			},
			StatusAuthenticating: {
				StatusAuthenticated:   {},
				StatusUnauthenticated: {},
			},
			StatusAuthenticated: {
				// restarting auth from an authenticated state is allowed:
				// a second login simply replaces the first
				StatusAuthenticating: {},
				StatusUnauthenticated: {},
			},
		},
		logger: defLogger{},
	}
}

func (m *AuthMachine) WithLogger(logger Logger) *AuthMachine {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// State returns a snapshot. Callers deciding on an async result must
// re-read state at resolution time rather than trusting a snapshot
// captured before the call.
func (m *AuthMachine) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start moves the machine into the authenticating phase.
func (m *AuthMachine) Start() error {
	return m.apply(AuthState{status: StatusAuthenticating})
}

// Succeed completes an in-flight attempt with the authenticated identity.
func (m *AuthMachine) Succeed(user *User, token string) error {
	if user == nil || token == "" {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "authenticated state requires a user and a token",
		})
	}
	return m.apply(AuthState{status: StatusAuthenticated, user: user, token: token})
}

// Fail abandons an in-flight attempt. Whatever state preceded the attempt
// is discarded, not restored.
func (m *AuthMachine) Fail() error {
	return m.apply(AuthState{status: StatusUnauthenticated})
}

// SignOut unconditionally returns the machine to unauthenticated. Valid
// from any state, idempotent.
func (m *AuthMachine) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = AuthState{status: StatusUnauthenticated}
}

// ReplaceUser swaps the user object while staying authenticated. Token
// and session bookkeeping are untouched.
func (m *AuthMachine) ReplaceUser(user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.status != StatusAuthenticated {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from":   m.state.status,
			"reason": "user replacement requires an authenticated state",
		})
	}
	if user == nil {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "user is nil",
		})
	}

	m.state = AuthState{status: StatusAuthenticated, user: user, token: m.state.token}
	return nil
}

func (m *AuthMachine) apply(next AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.canTransition(m.state.status, next.status) {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": m.state.status,
			"to":   next.status,
		})
	}

	m.logger.Debug("auth state transition", "from", m.state.status, "to", next.status)
	m.state = next
	return nil
}

func (m *AuthMachine) canTransition(from, to AuthStatus) bool {
	if from == to {
		return true
	}
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

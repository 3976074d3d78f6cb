package eduauth

import "context"

// AuthContext is the single source of truth for the client's auth state.
// Every public action wraps a state machine transition, converts errors
// into a boolean result at the boundary, and reports to the notifier; no
// error object ever reaches the view layer.
type AuthContext struct {
	client   ServiceClient
	tokens   *TokenStore
	sessions *SessionRegistry
	machine  *AuthMachine
	notifier Notifier
	logger   Logger
}

func NewAuthContext(client ServiceClient, storage Storage) *AuthContext {
	logger := defLogger{}
	return &AuthContext{
		client:   client,
		tokens:   NewTokenStore(storage).WithLogger(logger),
		sessions: NewSessionRegistry(storage).WithLogger(logger),
		machine:  NewAuthMachine().WithLogger(logger),
		notifier: noopNotifier{},
		logger:   logger,
	}
}

func (a *AuthContext) WithLogger(logger Logger) *AuthContext {
	if logger != nil {
		a.logger = logger
		a.machine.WithLogger(logger)
		a.tokens.WithLogger(logger)
		a.sessions.WithLogger(logger)
	}
	return a
}

// WithNotifier wires the user facing notification collaborator.
func (a *AuthContext) WithNotifier(notifier Notifier) *AuthContext {
	if notifier != nil {
		a.notifier = notifier
	}
	return a
}

// State returns a fresh snapshot of the auth state.
func (a *AuthContext) State() AuthState {
	return a.machine.State()
}

// Tokens exposes the token store for route guards.
func (a *AuthContext) Tokens() *TokenStore {
	return a.tokens
}

// Sessions exposes the session registry for route guards and tests.
func (a *AuthContext) Sessions() *SessionRegistry {
	return a.sessions
}

// SendOTP requests a one-time code for the mobile. Sending a code is not
// a login: no auth transition happens on success.
func (a *AuthContext) SendOTP(ctx context.Context, mobile string) bool {
	if err := ValidateMobile(mobile); err != nil {
		a.notify(NotifyError, err.Error())
		return false
	}

	if err := a.client.SendOTP(ctx, mobile); err != nil {
		a.logger.Error("send OTP failed", "error", err)
		a.notify(NotifyError, messageFromError(err, "could not send OTP"))
		return false
	}

	a.notify(NotifySuccess, "OTP sent")
	return true
}

// VerifyOTP exchanges mobile+code for a session.
func (a *AuthContext) VerifyOTP(ctx context.Context, mobile, code string) bool {
	if err := ValidateMobile(mobile); err != nil {
		a.notify(NotifyError, err.Error())
		return false
	}
	if err := ValidateOTP(code); err != nil {
		a.notify(NotifyError, err.Error())
		return false
	}

	if err := a.machine.Start(); err != nil {
		a.logger.Error("verify OTP start", "error", err)
		return false
	}

	result, err := a.client.VerifyOTP(ctx, mobile, code)
	if err != nil {
		return a.failAuth("OTP verification failed", err)
	}

	return a.establish(result, false)
}

// LoginWithMobile is the legacy mobile-only login path. Same success and
// failure shape as VerifyOTP, without the code.
func (a *AuthContext) LoginWithMobile(ctx context.Context, mobile string) bool {
	if err := ValidateMobile(mobile); err != nil {
		a.notify(NotifyError, err.Error())
		return false
	}

	if err := a.machine.Start(); err != nil {
		a.logger.Error("login start", "error", err)
		return false
	}

	result, err := a.client.Login(ctx, mobile)
	if err != nil {
		return a.failAuth("login failed", err)
	}

	return a.establish(result, false)
}

// AdminLogin authenticates staff with mobile+password. A successful admin
// login always evicts any existing session rather than conflict-checking,
// and stores its token in the admin slot as well as the general one.
func (a *AuthContext) AdminLogin(ctx context.Context, username, password string) bool {
	if err := ValidateMobile(username); err != nil {
		a.notify(NotifyError, err.Error())
		return false
	}
	if password == "" {
		a.notify(NotifyError, "password is required")
		return false
	}

	if err := a.machine.Start(); err != nil {
		a.logger.Error("admin login start", "error", err)
		return false
	}

	result, err := a.client.AdminLogin(ctx, username, password)
	if err != nil {
		return a.failAuth("admin login failed", err)
	}

	if result.User == nil || !result.User.IsAdminUser() {
		return a.failAuth("admin login failed", NewRejectedError("account is not an administrator"))
	}

	return a.establish(result, true)
}

// Logout unconditionally returns to unauthenticated and clears every
// token slot and the session bookkeeping. Always reports success.
func (a *AuthContext) Logout(_ context.Context) bool {
	a.machine.SignOut()
	a.tokens.Clear()
	a.sessions.ClearSession()
	a.notify(NotifyInfo, "signed out")
	return true
}

// UpdateProfile applies a partial profile update for the authenticated
// user. Token and session bookkeeping are untouched; a failure leaves the
// authenticated state as it was.
func (a *AuthContext) UpdateProfile(ctx context.Context, patch ProfilePatch) bool {
	state := a.machine.State()
	if !state.IsAuthenticated() {
		a.notify(NotifyError, "sign in to update your profile")
		return false
	}

	user, err := a.client.UpdateProfile(ctx, state.Token(), patch)
	if err != nil {
		a.logger.Error("profile update failed", "error", err)
		a.notify(NotifyError, messageFromError(err, "could not update profile"))
		return false
	}

	if err := a.machine.ReplaceUser(user); err != nil {
		// signed out while the update was in flight; drop the result
		a.logger.Warn("profile update resolved after sign out", "error", err)
		return false
	}

	a.tokens.CacheUser(user)
	a.notify(NotifySuccess, "profile updated")
	return true
}

// Bootstrap reconciles the in-memory state with the token store on app
// start. Cached admins are restored without a backend round-trip to
// avoid boot-time logout races; everyone else is re-verified, with a
// network failure falling back to the cached identity rather than
// punishing the user for transient connectivity loss.
func (a *AuthContext) Bootstrap(ctx context.Context) bool {
	token, hasToken := a.tokens.Token()
	cached, hasUser := a.tokens.CachedUser()
	if !hasToken || !hasUser {
		return false
	}

	if cached.IsAdminUser() {
		if adminToken, ok := a.tokens.AdminToken(); ok {
			token = adminToken
		}
		return a.restore(cached, token)
	}

	fresh, err := a.client.VerifyToken(ctx, token)
	if err != nil {
		if IsRejectedError(err) {
			a.logger.Info("stored token confirmed invalid, clearing credentials")
			a.tokens.Clear()
			a.sessions.ClearSession()
			return false
		}

		a.logger.Warn("token verification unreachable, keeping cached identity", "error", err)
		return a.restore(cached, token)
	}

	if fresh == nil {
		fresh = cached
	}
	a.tokens.CacheUser(fresh)
	return a.restore(fresh, token)
}

func (a *AuthContext) restore(user *User, token string) bool {
	if err := a.machine.Start(); err != nil {
		return false
	}
	if err := a.machine.Succeed(user, token); err != nil {
		a.logger.Error("restore failed", "error", err)
		return false
	}
	return true
}

// establish runs the AUTH_SUCCESS side effects: session conflict
// handling, token persistence, user caching, then the state transition.
func (a *AuthContext) establish(result *AuthResult, admin bool) bool {
	if result == nil || result.User == nil || result.Token == "" {
		return a.failAuth("login failed", NewRejectedError("malformed login response"))
	}

	user := result.User
	if admin {
		a.sessions.ClearSession()
	} else {
		a.sessions.HandleSessionConflict(user.ID.String())
	}
	a.sessions.SetActiveSession(user.ID.String())

	a.tokens.SetToken(result.Token)
	if admin {
		a.tokens.SetAdminToken(result.Token)
	}
	a.tokens.CacheUser(user)

	if err := a.machine.Succeed(user, result.Token); err != nil {
		a.logger.Error("auth success transition", "error", err)
		return false
	}

	a.notify(NotifySuccess, "signed in")
	return true
}

func (a *AuthContext) failAuth(fallback string, err error) bool {
	if ferr := a.machine.Fail(); ferr != nil {
		a.logger.Error("auth failure transition", "error", ferr)
	}
	a.logger.Error(fallback, "error", err)
	a.notify(NotifyError, messageFromError(err, fallback))
	return false
}

func (a *AuthContext) notify(kind NotifyKind, message string) {
	if a.notifier != nil {
		a.notifier.Notify(kind, message)
	}
}

// messageFromError prefers the server supplied rejection message and
// hides transport internals behind the fallback.
func messageFromError(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if IsRejectedError(err) {
		return err.Error()
	}
	return fallback
}

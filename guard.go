package eduauth

import "context"

// GuardRequirement names the role gate for a protected view. Zero value
// means "any authenticated user".
type GuardRequirement struct {
	Admin   bool
	Teacher bool
}

// GuardDecision is the outcome of a guard check. When Allowed is false,
// RedirectTo names the login view to send the user to; ForcedLogout is
// set only when a server-confirmed invalid token destroyed the session.
type GuardDecision struct {
	Allowed      bool
	RedirectTo   string
	ForcedLogout bool
}

// RouteGuardConfig holds the redirect targets and the storage key used to
// remember the rejected route for post-login return navigation.
type RouteGuardConfig struct {
	LoginRoute        string
	AdminLoginRoute   string
	TeacherLoginRoute string
	RejectedRouteKey  string
}

func (c RouteGuardConfig) withDefaults() RouteGuardConfig {
	if c.LoginRoute == "" {
		c.LoginRoute = "/login"
	}
	if c.AdminLoginRoute == "" {
		c.AdminLoginRoute = "/admin/login"
	}
	if c.TeacherLoginRoute == "" {
		c.TeacherLoginRoute = "/teacher/login"
	}
	if c.RejectedRouteKey == "" {
		c.RejectedRouteKey = "rejected_route"
	}
	return c
}

// RouteGuard gates rendering of protected views behind role checks,
// re-validating role-specific tokens against the backend before allowing
// the subtree to render.
type RouteGuard struct {
	auth    *AuthContext
	client  ServiceClient
	storage Storage
	cfg     RouteGuardConfig
	logger  Logger
}

func NewRouteGuard(auth *AuthContext, client ServiceClient, storage Storage, cfg RouteGuardConfig) *RouteGuard {
	return &RouteGuard{
		auth:    auth,
		client:  client,
		storage: storage,
		cfg:     cfg.withDefaults(),
		logger:  defLogger{},
	}
}

func (g *RouteGuard) WithLogger(logger Logger) *RouteGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Check evaluates access to target for the given requirement. State is
// re-read at every decision point so a logout dispatched while a verify
// call was in flight is never overwritten by the stale success.
func (g *RouteGuard) Check(ctx context.Context, target string, req GuardRequirement) GuardDecision {
	if !g.auth.State().IsAuthenticated() {
		return g.deny(target, req)
	}

	switch {
	case req.Admin:
		return g.checkAdmin(ctx, target, req)
	case req.Teacher:
		return g.checkTeacher(ctx, target, req)
	default:
		return g.checkAuthenticated(target, req)
	}
}

// ConsumeRedirect returns the remembered rejected route, or def when none
// was stored, clearing it either way.
func (g *RouteGuard) ConsumeRedirect(def string) string {
	target, ok := g.storage.Get(g.cfg.RejectedRouteKey)
	g.storage.Remove(g.cfg.RejectedRouteKey)
	if !ok || target == "" {
		return def
	}
	return target
}

func (g *RouteGuard) checkAdmin(ctx context.Context, target string, req GuardRequirement) GuardDecision {
	adminToken, ok := g.auth.Tokens().AdminToken()
	if !ok {
		// a general token alone never opens an admin view
		return g.deny(target, req)
	}

	result, err := g.client.VerifyAdmin(ctx, adminToken)
	if err != nil {
		if IsRejectedError(err) {
			return g.forceLogout(ctx, target, req, "admin token confirmed invalid")
		}
		// can't verify is not the same as verified invalid
		g.logger.Warn("admin verification unreachable, denying without logout", "error", err)
		return g.deny(target, req)
	}

	// the server claim and the local claim must agree
	user, cached := g.auth.Tokens().CachedUser()
	if !result.IsAdmin || !cached || !user.IsAdminUser() {
		return g.deny(target, req)
	}

	// re-read: a logout may have resolved while the verify was in flight
	if !g.auth.State().IsAuthenticated() {
		return g.deny(target, req)
	}

	return GuardDecision{Allowed: true}
}

func (g *RouteGuard) checkTeacher(ctx context.Context, target string, req GuardRequirement) GuardDecision {
	// cheap local check before spending a round-trip
	user, cached := g.auth.Tokens().CachedUser()
	if !cached || !user.IsTeacherUser() {
		return g.deny(target, req)
	}

	token, ok := g.auth.Tokens().Token()
	if !ok {
		return g.deny(target, req)
	}

	result, err := g.client.VerifyTeacher(ctx, token)
	if err != nil {
		if IsRejectedError(err) {
			return g.forceLogout(ctx, target, req, "teacher token confirmed invalid")
		}
		g.logger.Warn("teacher verification unreachable, denying without logout", "error", err)
		return g.deny(target, req)
	}

	if !result.IsTeacher {
		return g.deny(target, req)
	}

	if !g.auth.State().IsAuthenticated() {
		return g.deny(target, req)
	}

	return GuardDecision{Allowed: true}
}

// checkAuthenticated gates plain authenticated routes: a stored general
// token and a cached user, no backend round-trip.
func (g *RouteGuard) checkAuthenticated(target string, req GuardRequirement) GuardDecision {
	if _, ok := g.auth.Tokens().Token(); !ok {
		return g.deny(target, req)
	}
	if _, ok := g.auth.Tokens().CachedUser(); !ok {
		return g.deny(target, req)
	}
	return GuardDecision{Allowed: true}
}

func (g *RouteGuard) deny(target string, req GuardRequirement) GuardDecision {
	g.rememberTarget(target)
	return GuardDecision{RedirectTo: g.redirectFor(req)}
}

func (g *RouteGuard) forceLogout(ctx context.Context, target string, req GuardRequirement, reason string) GuardDecision {
	g.logger.Info("forcing logout", "reason", reason)
	g.auth.Logout(ctx)
	g.rememberTarget(target)
	return GuardDecision{RedirectTo: g.redirectFor(req), ForcedLogout: true}
}

func (g *RouteGuard) rememberTarget(target string) {
	if target != "" {
		g.storage.Set(g.cfg.RejectedRouteKey, target)
	}
}

func (g *RouteGuard) redirectFor(req GuardRequirement) string {
	switch {
	case req.Admin:
		return g.cfg.AdminLoginRoute
	case req.Teacher:
		return g.cfg.TeacherLoginRoute
	default:
		return g.cfg.LoginRoute
	}
}

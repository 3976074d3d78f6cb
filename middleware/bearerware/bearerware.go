// Package bearerware is a Fiber middleware that validates bearer tokens
// and stores the resulting claims in the request locals.
package bearerware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var ErrTokenMissingOrMalformed = errors.New("missing or malformed bearer token")

// TokenValidator mirrors the root package TokenService.Validate method,
// declared locally to avoid an import cycle.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims mirrors the root package AuthClaims interface.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	IsAdmin() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
}

type Config struct {
	// Validator is required
	Validator TokenValidator
	// ContextKey is the locals key the claims are stored under
	ContextKey string
	// AuthScheme defaults to Bearer
	AuthScheme string
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool
	// RequiredRole, when set, must match the claims role exactly
	RequiredRole string
	// MinimumRole, when set, uses the role hierarchy
	MinimumRole string
	ErrorHandler func(*fiber.Ctx, error) error
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("EDUAUTH: bearerware configuration: Validator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if errors.Is(err, ErrTokenMissingOrMalformed) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"message": ErrTokenMissingOrMalformed.Error(),
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "invalid or expired token",
			})
		}
	}

	return cfg
}

// New returns a handler that rejects requests without a valid token.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := tokenFromHeader(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Validator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if cfg.RequiredRole != "" && !claims.HasRole(cfg.RequiredRole) {
			return cfg.ErrorHandler(c, errors.New("access denied: required role not found"))
		}

		if cfg.MinimumRole != "" && !claims.IsAtLeast(cfg.MinimumRole) {
			return cfg.ErrorHandler(c, errors.New("access denied: minimum role not met"))
		}

		c.Locals(cfg.ContextKey, claims)

		return c.Next()
	}
}

// ClaimsFromCtx retrieves validated claims stored by the middleware.
func ClaimsFromCtx(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = "claims"
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok
}

func tokenFromHeader(c *fiber.Ctx, authScheme string) (string, error) {
	a := c.Get(fiber.HeaderAuthorization)
	l := len(authScheme)
	if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
		return strings.TrimSpace(a[l:]), nil
	}
	return "", ErrTokenMissingOrMalformed
}

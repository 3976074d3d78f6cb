// Package server exposes the auth endpoints as a Fiber application.
// Every response uses the {success, message, data} envelope the client
// package decodes.
package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	eduauth "github.com/goliatone/go-eduauth"
	"github.com/goliatone/go-eduauth/middleware/bearerware"
	"github.com/goliatone/go-eduauth/otp"
)

// CodeSender delivers an issued OTP code to a mobile number, normally
// through an SMS gateway. Delivery is best-effort: a send failure is
// logged but does not fail the request.
type CodeSender interface {
	SendCode(ctx context.Context, mobile, code string) error
}

// logSender writes codes to the log. Development fallback when no
// gateway is configured.
type logSender struct {
	logger eduauth.Logger
}

func (s logSender) SendCode(_ context.Context, mobile, code string) error {
	s.logger.Info("otp code issued", "mobile", mobile, "code", code)
	return nil
}

type Config struct {
	Users      eduauth.Users
	Identities eduauth.IdentityProvider
	Tokens     eduauth.TokenService
	Codes      otp.Store
	Sender     CodeSender
	Logger     eduauth.Logger
	Debug      bool
}

type Server struct {
	users      eduauth.Users
	identities eduauth.IdentityProvider
	tokens     eduauth.TokenService
	codes      otp.Store
	sender     CodeSender
	logger     eduauth.Logger
	debug      bool
}

func New(cfg Config) (*Server, error) {
	if cfg.Users == nil {
		return nil, errors.New("server config requires a Users repository")
	}

	if cfg.Identities == nil {
		return nil, errors.New("server config requires an IdentityProvider")
	}

	if cfg.Tokens == nil {
		return nil, errors.New("server config requires a TokenService")
	}

	if cfg.Codes == nil {
		cfg.Codes = otp.NewMemoryStore()
	}

	if cfg.Logger == nil {
		cfg.Logger = eduauth.DefaultLogger()
	}

	if cfg.Sender == nil {
		cfg.Sender = logSender{logger: cfg.Logger}
	}

	return &Server{
		users:      cfg.Users,
		identities: cfg.Identities,
		tokens:     cfg.Tokens,
		codes:      cfg.Codes,
		sender:     cfg.Sender,
		logger:     cfg.Logger,
		debug:      cfg.Debug,
	}, nil
}

// Register mounts the auth routes on the given app.
func (s *Server) Register(app *fiber.App) {
	protected := bearerware.New(bearerware.Config{
		Validator: tokenValidator{tokens: s.tokens},
	})

	auth := app.Group("/auth")
	auth.Post("/login", s.Login)
	auth.Post("/send-otp", s.SendOTP)
	auth.Post("/verify-otp", s.VerifyOTP)
	auth.Post("/admin/login", s.AdminLogin)

	auth.Post("/verify-admin", protected, s.VerifyAdmin)
	auth.Post("/verify-teacher", protected, s.VerifyTeacher)
	auth.Post("/verify-token", protected, s.VerifyToken)
	auth.Put("/profile", protected, s.UpdateProfile)
}

// tokenValidator adapts eduauth.TokenService to the bearerware
// validator interface.
type tokenValidator struct {
	tokens eduauth.TokenService
}

func (v tokenValidator) Validate(tokenString string) (bearerware.AuthClaims, error) {
	claims, err := v.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func ok(c *fiber.Ctx, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

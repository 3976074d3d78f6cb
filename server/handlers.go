package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	eduauth "github.com/goliatone/go-eduauth"
	"github.com/goliatone/go-eduauth/middleware/bearerware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

const (
	msgInvalidToken       = "invalid or expired token"
	msgInvalidCredentials = "invalid credentials"
	msgInvalidCode        = "invalid or expired code"
	msgAccountNotFound    = "account not found"
	msgInvalidMobile      = "invalid mobile number"
)

// Login is the legacy mobile-only student login. It only succeeds for
// mobiles that already have an account.
func (s *Server) Login(c *fiber.Ctx) error {
	payload := loginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "unable to parse request")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	mobile, err := eduauth.NormalizeMobile(payload.Mobile)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidMobile)
	}

	user, err := s.users.GetByMobile(c.Context(), mobile)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return fail(c, fiber.StatusUnauthorized, msgAccountNotFound)
		}
		s.logger.Error("login lookup failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "login failed")
	}

	token, err := s.tokens.Generate(eduauth.NewIdentityFromUser(user))
	if err != nil {
		s.logger.Error("token generation failed", "user", user.ID.String(), "error", err)
		return fail(c, fiber.StatusInternalServerError, "login failed")
	}

	return ok(c, "", eduauth.AuthResult{User: user, Token: token})
}

// SendOTP issues a login code for the mobile, registering a student
// account on first contact.
func (s *Server) SendOTP(c *fiber.Ctx) error {
	payload := sendOTPPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "unable to parse request")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	mobile, err := eduauth.NormalizeMobile(payload.Mobile)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidMobile)
	}

	if _, err := s.users.GetOrRegister(c.Context(), mobile); err != nil {
		s.logger.Error("user registration failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to send code")
	}

	code, err := s.codes.Issue(c.Context(), mobile)
	if err != nil {
		s.logger.Error("otp issue failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to send code")
	}

	if err := s.sender.SendCode(c.Context(), mobile, code); err != nil {
		s.logger.Warn("otp delivery failed", "mobile", mobile, "error", err)
	}

	return ok(c, "otp sent", nil)
}

// VerifyOTP consumes the code and issues a token. Codes are single use,
// retrying after a failed attempt requires a fresh code.
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	payload := verifyOTPPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "unable to parse request")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	mobile, err := eduauth.NormalizeMobile(payload.Mobile)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidMobile)
	}

	match, err := s.codes.Verify(c.Context(), mobile, payload.OTP)
	if err != nil {
		s.logger.Error("otp verification failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to verify code")
	}

	if !match {
		return fail(c, fiber.StatusUnauthorized, msgInvalidCode)
	}

	user, err := s.users.GetOrRegister(c.Context(), mobile)
	if err != nil {
		s.logger.Error("user lookup failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to verify code")
	}

	token, err := s.tokens.Generate(eduauth.NewIdentityFromUser(user))
	if err != nil {
		s.logger.Error("token generation failed", "user", user.ID.String(), "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to verify code")
	}

	return ok(c, "", eduauth.AuthResult{User: user, Token: token})
}

// AdminLogin is the password flow for admin and teacher accounts.
// Students carry a random unmatchable password hash, so they always
// land on invalid credentials here.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	payload := adminLoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "unable to parse request")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	mobile, err := eduauth.NormalizeMobile(payload.Mobile)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidMobile)
	}

	if s.debug {
		fmt.Println("======= ADMIN LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(map[string]string{"mobile": mobile}))
		fmt.Println("==========================")
	}

	identity, err := s.identities.VerifyIdentity(c.Context(), mobile, payload.Password)
	if err != nil {
		if goerrors.Is(err, eduauth.ErrTooManyLoginAttempts) {
			return fail(c, fiber.StatusTooManyRequests, "too many login attempts")
		}
		return fail(c, fiber.StatusUnauthorized, msgInvalidCredentials)
	}

	if identity.Role() == string(eduauth.RoleStudent) {
		return fail(c, fiber.StatusUnauthorized, msgInvalidCredentials)
	}

	user, err := s.users.GetByMobile(c.Context(), mobile)
	if err != nil {
		s.logger.Error("login lookup failed", "mobile", mobile, "error", err)
		return fail(c, fiber.StatusInternalServerError, "login failed")
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		s.logger.Error("token generation failed", "user", user.ID.String(), "error", err)
		return fail(c, fiber.StatusInternalServerError, "login failed")
	}

	return ok(c, "", eduauth.AuthResult{User: user, Token: token})
}

// VerifyAdmin reports whether the bearer's account currently holds the
// admin role. A valid non-admin token is a successful response with
// isAdmin=false, not a rejection: only invalid tokens answer
// success=false.
func (s *Server) VerifyAdmin(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgInvalidToken)
	}

	return ok(c, "", eduauth.VerifyAdminResult{
		IsAdmin: user.IsAdminUser(),
		User:    user,
	})
}

// VerifyTeacher reports whether the bearer's account currently holds
// the teacher role.
func (s *Server) VerifyTeacher(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgInvalidToken)
	}

	return ok(c, "", eduauth.VerifyTeacherResult{
		IsTeacher: user.IsTeacherUser(),
	})
}

// VerifyToken re-reads the bearer's user from the repository so the
// client refreshes role and enrollments that changed since the token
// was issued.
func (s *Server) VerifyToken(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgInvalidToken)
	}

	return ok(c, "", fiber.Map{"user": user})
}

// UpdateProfile applies a partial update to the bearer's own user.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, msgInvalidToken)
	}

	payload := profilePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "unable to parse request")
	}

	if err := payload.Validate(); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	updated, err := s.users.UpdateProfile(c.Context(), user.ID, eduauth.ProfilePatch{
		Name: payload.Name,
	})
	if err != nil {
		s.logger.Error("profile update failed", "user", user.ID.String(), "error", err)
		return fail(c, fiber.StatusInternalServerError, "unable to update profile")
	}

	return ok(c, "", fiber.Map{"user": updated})
}

// currentUser resolves the validated claims to a fresh user record. A
// token whose account no longer exists is treated as invalid.
func (s *Server) currentUser(c *fiber.Ctx) (*eduauth.User, error) {
	claims, exists := bearerware.ClaimsFromCtx(c, "")
	if !exists {
		return nil, eduauth.ErrIdentityNotFound
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, eduauth.ErrIdentityNotFound
	}

	return s.users.GetByID(c.Context(), id)
}

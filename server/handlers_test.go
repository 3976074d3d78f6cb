package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	eduauth "github.com/goliatone/go-eduauth"
	"github.com/goliatone/go-eduauth/otp"
	"github.com/goliatone/go-eduauth/server"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// fakeUsers is an in-memory Users implementation for handler tests.
type fakeUsers struct {
	mu       sync.Mutex
	byMobile map[string]*eduauth.User
}

func newFakeUsers(seed ...*eduauth.User) *fakeUsers {
	f := &fakeUsers{byMobile: map[string]*eduauth.User{}}
	for _, u := range seed {
		f.byMobile[u.Mobile] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*eduauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byMobile {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) GetByMobile(_ context.Context, mobile string) (*eduauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byMobile[mobile]; ok {
		return u, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) Register(_ context.Context, user *eduauth.User) (*eduauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.EnsureRole()
	if user.PasswordHash == "" {
		user.PasswordHash = "*"
	}
	f.byMobile[user.Mobile] = user
	return user, nil
}

func (f *fakeUsers) RegisterTx(ctx context.Context, _ bun.IDB, user *eduauth.User) (*eduauth.User, error) {
	return f.Register(ctx, user)
}

func (f *fakeUsers) GetOrRegister(ctx context.Context, mobile string) (*eduauth.User, error) {
	if user, err := f.GetByMobile(ctx, mobile); err == nil {
		return user, nil
	}
	return f.Register(ctx, &eduauth.User{Mobile: mobile})
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id uuid.UUID, patch eduauth.ProfilePatch) (*eduauth.User, error) {
	user, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	return user, nil
}

func (f *fakeUsers) TrackAttemptedLogin(context.Context, *eduauth.User) error   { return nil }
func (f *fakeUsers) TrackSuccessfulLogin(context.Context, *eduauth.User) error { return nil }

var _ eduauth.Users = (*fakeUsers)(nil)

// captureSender records the last delivered code.
type captureSender struct {
	mu   sync.Mutex
	code string
}

func (s *captureSender) SendCode(_ context.Context, _, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return nil
}

func (s *captureSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

type testEnv struct {
	app    *fiber.App
	users  *fakeUsers
	tokens eduauth.TokenService
	sender *captureSender
}

func newTestEnv(t *testing.T, seed ...*eduauth.User) *testEnv {
	t.Helper()

	users := newFakeUsers(seed...)
	tokens := eduauth.NewTokenService([]byte("handler-test-key"), 1, "eduauth-test", nil, nil)
	sender := &captureSender{}

	srv, err := server.New(server.Config{
		Users:      users,
		Identities: eduauth.NewUserProvider(users),
		Tokens:     tokens,
		Codes:      otp.NewMemoryStore(),
		Sender:     sender,
	})
	require.NoError(t, err)

	app := fiber.New()
	srv.Register(app)

	return &testEnv{app: app, users: users, tokens: tokens, sender: sender}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) request(t *testing.T, method, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	env := envelope{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) tokenFor(t *testing.T, user *eduauth.User) string {
	t.Helper()
	token, err := e.tokens.Generate(eduauth.NewIdentityFromUser(user))
	require.NoError(t, err)
	return token
}

func seededAdmin(t *testing.T, password string) *eduauth.User {
	t.Helper()
	hash, err := eduauth.HashPassword(password)
	require.NoError(t, err)
	return &eduauth.User{
		ID:           uuid.New(),
		Name:         "Priya",
		Mobile:       "9000000000",
		Role:         eduauth.RoleAdmin,
		PasswordHash: hash,
	}
}

func TestSendOTPRegistersUnknownMobile(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/send-otp",
		map[string]string{"mobile": "9876543210"}, "")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.NotEmpty(t, env.sender.last())

	user, err := env.users.GetByMobile(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, eduauth.RoleStudent, user.Role)
}

func TestSendOTPValidatesMobile(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/send-otp",
		map[string]string{"mobile": "12"}, "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestVerifyOTPIssuesToken(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.request(t, fiber.MethodPost, "/auth/send-otp",
		map[string]string{"mobile": "9876543210"}, "")
	require.True(t, body.Success)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-otp",
		map[string]string{"mobile": "9876543210", "otp": env.sender.last()}, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.AuthResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.NotNil(t, result.User)
	assert.Equal(t, "9876543210", result.User.Mobile)

	claims, err := env.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID.String(), claims.UserID())
	assert.Equal(t, "student", claims.Role())
}

func TestVerifyOTPWrongCodeRejected(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.request(t, fiber.MethodPost, "/auth/send-otp",
		map[string]string{"mobile": "9876543210"}, "")
	require.True(t, body.Success)

	wrong := "000000"
	if env.sender.last() == wrong {
		wrong = "000001"
	}

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-otp",
		map[string]string{"mobile": "9876543210", "otp": wrong}, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "code")
}

func TestSendOTPNormalizesCountryPrefix(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.request(t, fiber.MethodPost, "/auth/send-otp",
		map[string]string{"mobile": "+919876543210"}, "")
	require.True(t, body.Success)

	// the account is registered under the national number
	user, err := env.users.GetByMobile(context.Background(), "9876543210")
	require.NoError(t, err)

	// the bare form consumes the code issued for the prefixed form
	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-otp",
		map[string]string{"mobile": "9876543210", "otp": env.sender.last()}, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.AuthResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.NotNil(t, result.User)
	assert.Equal(t, user.ID, result.User.ID)
}

func TestAdminLoginNormalizesCountryPrefix(t *testing.T) {
	admin := seededAdmin(t, "sup3r-secret")
	env := newTestEnv(t, admin)

	resp, body := env.request(t, fiber.MethodPost, "/auth/admin/login",
		map[string]string{"mobile": "+91" + admin.Mobile, "password": "sup3r-secret"}, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.AuthResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, admin.ID, result.User.ID)
}

func TestLoginUnknownMobileRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/login",
		map[string]string{"mobile": "9876543210"}, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "account not found", body.Message)
}

func TestAdminLoginHappyPath(t *testing.T) {
	admin := seededAdmin(t, "sup3r-secret")
	env := newTestEnv(t, admin)

	resp, body := env.request(t, fiber.MethodPost, "/auth/admin/login",
		map[string]string{"mobile": admin.Mobile, "password": "sup3r-secret"}, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.AuthResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, admin.ID, result.User.ID)

	claims, err := env.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestAdminLoginWrongPassword(t *testing.T) {
	admin := seededAdmin(t, "sup3r-secret")
	env := newTestEnv(t, admin)

	resp, body := env.request(t, fiber.MethodPost, "/auth/admin/login",
		map[string]string{"mobile": admin.Mobile, "password": "nope"}, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "invalid credentials", body.Message)
}

func TestAdminLoginStudentAccountRejected(t *testing.T) {
	hash, err := eduauth.HashPassword("knows-a-password")
	require.NoError(t, err)
	student := &eduauth.User{
		ID:           uuid.New(),
		Mobile:       "9876543210",
		Role:         eduauth.RoleStudent,
		PasswordHash: hash,
	}
	env := newTestEnv(t, student)

	resp, body := env.request(t, fiber.MethodPost, "/auth/admin/login",
		map[string]string{"mobile": student.Mobile, "password": "knows-a-password"}, "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestVerifyAdminForAdminToken(t *testing.T) {
	admin := seededAdmin(t, "pw")
	env := newTestEnv(t, admin)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-admin", nil, env.tokenFor(t, admin))

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.VerifyAdminResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.IsAdmin)
	require.NotNil(t, result.User)
	assert.Equal(t, admin.ID, result.User.ID)
}

func TestVerifyAdminForStudentTokenIsSuccessNotAdmin(t *testing.T) {
	student := &eduauth.User{ID: uuid.New(), Mobile: "9876543210", Role: eduauth.RoleStudent}
	env := newTestEnv(t, student)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-admin", nil, env.tokenFor(t, student))

	// a valid non-admin token is an answered question, not a rejection
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	result := eduauth.VerifyAdminResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.False(t, result.IsAdmin)
}

func TestVerifyAdminGarbageTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-admin", nil, "garbage-token")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "invalid or expired token", body.Message)
}

func TestVerifyAdminMissingTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-admin", nil, "")

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestVerifyTeacher(t *testing.T) {
	teacher := &eduauth.User{ID: uuid.New(), Mobile: "9000000001", Role: eduauth.RoleTeacher}
	student := &eduauth.User{ID: uuid.New(), Mobile: "9876543210", Role: eduauth.RoleStudent}
	env := newTestEnv(t, teacher, student)

	_, body := env.request(t, fiber.MethodPost, "/auth/verify-teacher", nil, env.tokenFor(t, teacher))
	require.True(t, body.Success)
	result := eduauth.VerifyTeacherResult{}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.IsTeacher)

	_, body = env.request(t, fiber.MethodPost, "/auth/verify-teacher", nil, env.tokenFor(t, student))
	require.True(t, body.Success)
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.False(t, result.IsTeacher)
}

func TestVerifyTokenReturnsFreshUser(t *testing.T) {
	student := &eduauth.User{ID: uuid.New(), Mobile: "9876543210", Role: eduauth.RoleStudent}
	env := newTestEnv(t, student)

	token := env.tokenFor(t, student)

	// the account changes after the token was issued
	student.Name = "Renamed"

	_, body := env.request(t, fiber.MethodPost, "/auth/verify-token", nil, token)
	require.True(t, body.Success)

	data := struct {
		User *eduauth.User `json:"user"`
	}{}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "Renamed", data.User.Name)
}

func TestVerifyTokenGoneAccountRejected(t *testing.T) {
	ghost := &eduauth.User{ID: uuid.New(), Mobile: "9876543210", Role: eduauth.RoleStudent}
	env := newTestEnv(t)

	resp, body := env.request(t, fiber.MethodPost, "/auth/verify-token", nil, env.tokenFor(t, ghost))

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
	assert.Equal(t, "invalid or expired token", body.Message)
}

func TestUpdateProfile(t *testing.T) {
	student := &eduauth.User{ID: uuid.New(), Mobile: "9876543210", Role: eduauth.RoleStudent}
	env := newTestEnv(t, student)

	resp, body := env.request(t, fiber.MethodPut, "/auth/profile",
		map[string]string{"name": "Asha K"}, env.tokenFor(t, student))

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	data := struct {
		User *eduauth.User `json:"user"`
	}{}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "Asha K", data.User.Name)
}

package eduauth_test

import (
	"context"
	"sync"

	eduauth "github.com/goliatone/go-eduauth"
	"github.com/stretchr/testify/mock"
)

// MockServiceClient implements eduauth.ServiceClient
type MockServiceClient struct {
	mock.Mock
}

func (m *MockServiceClient) Login(ctx context.Context, mobile string) (*eduauth.AuthResult, error) {
	args := m.Called(ctx, mobile)
	var result *eduauth.AuthResult
	if v := args.Get(0); v != nil {
		result = v.(*eduauth.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockServiceClient) SendOTP(ctx context.Context, mobile string) error {
	args := m.Called(ctx, mobile)
	return args.Error(0)
}

func (m *MockServiceClient) VerifyOTP(ctx context.Context, mobile, code string) (*eduauth.AuthResult, error) {
	args := m.Called(ctx, mobile, code)
	var result *eduauth.AuthResult
	if v := args.Get(0); v != nil {
		result = v.(*eduauth.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockServiceClient) AdminLogin(ctx context.Context, mobile, password string) (*eduauth.AuthResult, error) {
	args := m.Called(ctx, mobile, password)
	var result *eduauth.AuthResult
	if v := args.Get(0); v != nil {
		result = v.(*eduauth.AuthResult)
	}
	return result, args.Error(1)
}

func (m *MockServiceClient) VerifyAdmin(ctx context.Context, adminToken string) (*eduauth.VerifyAdminResult, error) {
	args := m.Called(ctx, adminToken)
	var result *eduauth.VerifyAdminResult
	if v := args.Get(0); v != nil {
		result = v.(*eduauth.VerifyAdminResult)
	}
	return result, args.Error(1)
}

func (m *MockServiceClient) VerifyTeacher(ctx context.Context, token string) (*eduauth.VerifyTeacherResult, error) {
	args := m.Called(ctx, token)
	var result *eduauth.VerifyTeacherResult
	if v := args.Get(0); v != nil {
		result = v.(*eduauth.VerifyTeacherResult)
	}
	return result, args.Error(1)
}

func (m *MockServiceClient) VerifyToken(ctx context.Context, token string) (*eduauth.User, error) {
	args := m.Called(ctx, token)
	var user *eduauth.User
	if v := args.Get(0); v != nil {
		user = v.(*eduauth.User)
	}
	return user, args.Error(1)
}

func (m *MockServiceClient) UpdateProfile(ctx context.Context, token string, patch eduauth.ProfilePatch) (*eduauth.User, error) {
	args := m.Called(ctx, token, patch)
	var user *eduauth.User
	if v := args.Get(0); v != nil {
		user = v.(*eduauth.User)
	}
	return user, args.Error(1)
}

// MockUserStore implements eduauth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByMobile(ctx context.Context, mobile string) (*eduauth.User, error) {
	args := m.Called(ctx, mobile)
	var user *eduauth.User
	if v := args.Get(0); v != nil {
		user = v.(*eduauth.User)
	}
	return user, args.Error(1)
}

func (m *MockUserStore) TrackAttemptedLogin(ctx context.Context, user *eduauth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) TrackSuccessfulLogin(ctx context.Context, user *eduauth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	kinds    []eduauth.NotifyKind
}

func (n *recordingNotifier) Notify(kind eduauth.NotifyKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) last() (eduauth.NotifyKind, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return "", ""
	}
	return n.kinds[len(n.kinds)-1], n.messages[len(n.messages)-1]
}

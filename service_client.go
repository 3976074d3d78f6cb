package eduauth

import "context"

// AuthResult is the payload returned by every credential-issuing
// endpoint.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// VerifyAdminResult is the payload of the admin re-verification endpoint.
type VerifyAdminResult struct {
	IsAdmin bool  `json:"isAdmin"`
	User    *User `json:"user,omitempty"`
}

// VerifyTeacherResult is the payload of the teacher re-verification
// endpoint.
type VerifyTeacherResult struct {
	IsTeacher bool `json:"isTeacher"`
}

// ProfilePatch carries a partial profile update. Nil fields are left
// untouched.
type ProfilePatch struct {
	Name *string `json:"name,omitempty"`
}

// ServiceClient issues the backend auth calls and normalizes their
// {success, message, data} envelopes. A success=false envelope surfaces
// as a rejected error; a network level failure surfaces as a transport
// error. Callers branch with IsRejectedError / IsTransportError.
type ServiceClient interface {
	Login(ctx context.Context, mobile string) (*AuthResult, error)
	SendOTP(ctx context.Context, mobile string) error
	VerifyOTP(ctx context.Context, mobile, code string) (*AuthResult, error)
	AdminLogin(ctx context.Context, mobile, password string) (*AuthResult, error)
	VerifyAdmin(ctx context.Context, adminToken string) (*VerifyAdminResult, error)
	VerifyTeacher(ctx context.Context, token string) (*VerifyTeacherResult, error)
	VerifyToken(ctx context.Context, token string) (*User, error)
	UpdateProfile(ctx context.Context, token string, patch ProfilePatch) (*User, error)
}

package eduauth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced on rich errors so callers can branch without
// string matching.
const (
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeRejected          = "CREDENTIALS_REJECTED"
	TextCodeTransportFailure  = "TRANSPORT_FAILURE"
	TextCodeTooManyAttempts   = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodePasswordMismatch  = "PASSWORD_MISMATCH"
	TextCodeInvalidTransition = "INVALID_AUTH_STATE_TRANSITION"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// ErrUnableToDecodeSession unable to decode claims from a bearer token
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrTokenExpired is returned when a bearer token is past its expiration.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when credentials do not match.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when an account is cooling down.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(goerrors.CodeUnauthorized)

// NewRejectedError wraps a server supplied rejection message. The backend
// answered, it just said no: the caller must treat the attempt as failed
// and must not retry on its own.
func NewRejectedError(message string) *goerrors.Error {
	if message == "" {
		message = "request rejected"
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(TextCodeRejected).
		WithCode(goerrors.CodeUnauthorized)
}

// NewTransportError wraps a network level failure: the backend never
// answered. Token re-verification paths treat this leniently and fall
// back to the last known good identity.
func NewTransportError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed").
		WithTextCode(TextCodeTransportFailure)
}

// IsRejectedError reports whether the backend explicitly rejected the
// request (success=false envelope).
func IsRejectedError(err error) bool {
	return hasTextCode(err, TextCodeRejected)
}

// IsTransportError reports whether the request failed before the backend
// could answer.
func IsTransportError(err error) bool {
	return hasTextCode(err, TextCodeTransportFailure)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

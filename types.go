package eduauth

import (
	"context"
	"fmt"
	"strings"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NotifyKind classifies user facing notifications
type NotifyKind string

const (
	NotifyInfo    NotifyKind = "info"
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
)

// Notifier receives user facing messages emitted at the auth action
// boundary. The concrete rendering (toast, banner, log line) is the
// consumer's concern.
type Notifier interface {
	Notify(kind NotifyKind, message string)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Name() string
	Mobile() string
	Role() string
}

// IdentityProvider ensures we have a store to verify and retrieve identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, mobile, password string) (Identity, error)
	FindIdentityByMobile(ctx context.Context, mobile string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// DefaultLogger returns the stdout fallback logger.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(formatLogLine("[ERR] EDUAUTH", msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(formatLogLine("[WRN] EDUAUTH", msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(formatLogLine("[INF] EDUAUTH", msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(formatLogLine("[DBG] EDUAUTH", msg, args))
}

// formatLogLine renders the message followed by key=value pairs. An
// odd trailing argument is appended bare.
func formatLogLine(prefix, msg string, args []any) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(' ')
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	return b.String()
}

type noopNotifier struct{}

func (noopNotifier) Notify(NotifyKind, string) {}

// Package otp issues and verifies the short numeric codes used by the
// student login flow. Codes are single use and expire after a TTL.
package otp

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultTTL is how long an issued code stays valid.
var DefaultTTL = 5 * time.Minute

// CodeLength is the number of digits in an issued code.
const CodeLength = 6

// Store issues and verifies one-time codes keyed by mobile number.
// Verify consumes the code: a second verification of the same code
// fails regardless of the outcome of the first.
type Store interface {
	Issue(ctx context.Context, mobile string) (string, error)
	Verify(ctx context.Context, mobile, code string) (bool, error)
}

var ErrStoreUnavailable = errors.New("otp store unavailable", errors.CategoryInternal).
	WithTextCode("OTP_STORE_UNAVAILABLE")

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate otp code")
	}

	code := n.String()
	for len(code) < CodeLength {
		code = "0" + code
	}

	return code, nil
}

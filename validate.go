package eduauth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
)

// DefaultRegion is the calling region assumed when normalizing mobile
// numbers that arrive without a country prefix.
var DefaultRegion = "IN"

// ValidateMobile enforces the client-side mobile format: exactly ten
// digits. It runs before any network call.
func ValidateMobile(mobile string) error {
	return validation.Validate(mobile,
		validation.Required.Error("mobile is required"),
		validation.Match(mobilePattern).Error("mobile must be exactly 10 digits"),
	)
}

// ValidateOTP enforces the client-side OTP format: exactly six digits.
func ValidateOTP(code string) error {
	return validation.Validate(code,
		validation.Required.Error("OTP is required"),
		validation.Match(otpPattern).Error("OTP must be exactly 6 digits"),
	)
}

// NormalizeMobile reduces user input to the national significant number,
// accepting either a bare 10 digit mobile or a full number with country
// prefix. Used server-side; the client validates format only.
func NormalizeMobile(raw string) (string, error) {
	if mobilePattern.MatchString(raw) {
		return raw, nil
	}

	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "unparseable mobile number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid mobile number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.GetNationalSignificantNumber(num), nil
}

package server

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// mobileInputPattern accepts a bare national number or a full number
// with country prefix; NormalizeMobile reduces both to the same form.
var mobileInputPattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func mobileRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Match(mobileInputPattern).Error("must be a valid mobile number"),
	}
}

type sendOTPPayload struct {
	Mobile string `json:"mobile"`
}

func (p sendOTPPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mobile, mobileRules()...),
	)
}

type verifyOTPPayload struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

func (p verifyOTPPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mobile, mobileRules()...),
		validation.Field(&p.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

type loginPayload struct {
	Mobile string `json:"mobile"`
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mobile, mobileRules()...),
	)
}

type adminLoginPayload struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

func (p adminLoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Mobile, mobileRules()...),
		validation.Field(&p.Password, validation.Required, validation.Length(1, 100)),
	)
}

type profilePayload struct {
	Name *string `json:"name,omitempty"`
}

func (p profilePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Length(1, 200)),
	)
}

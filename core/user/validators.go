package user

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jbkiprop/studentos/core"
)

// password policy (applies to operator-chosen passwords; generated student
// credentials satisfy it by construction)
var (
	pwdMinLen      = 8
	pwdMinLenText  = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)
	pwdNoSpaceText = "password must not contain whitespace"
	pwdAllNumText  = "password cannot be entirely numeric"
	pwdMaxSim      = .7
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// ValidatePassword enforces the password policy, comparing the candidate
// against the account's identifying attributes.
func ValidatePassword(pwd string, usr User) error {
	fieldErr := func(text string) error {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: text})
	}

	if len(pwd) < pwdMinLen {
		return fieldErr(pwdMinLenText)
	}
	if strings.ContainsAny(pwd, " \t\n") {
		return fieldErr(pwdNoSpaceText)
	}

	allNum := true
	for _, r := range pwd {
		if !unicode.IsDigit(r) {
			allNum = false
			break
		}
	}
	if allNum {
		return fieldErr(pwdAllNumText)
	}

	for _, attr := range []string{usr.Username} {
		if attr == "" {
			continue
		}
		if similarity(pwd, attr) > pwdMaxSim {
			return fieldErr(pwdAttrSimText)
		}
	}
	return nil
}

func similarity(pass, usrAttr string) float64 {
	pass = strings.ToLower(pass)
	usrAttr = strings.ToLower(usrAttr)
	return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
}

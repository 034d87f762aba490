package school

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/shule/core"
)

// password policy
var (
	pwdMinLen     = 8
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceText   = "password must not contain whitespace"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimText = "password cannot be similar to account attributes"

	pwdNoCommonText = "password is too common"
	commonPasswords = []string{
		"12345678", "123456789", "1234567890", "asdfghjkl", "baseball", "basketball",
		"chocolate", "computer", "football", "iloveyou", "jennifer", "jessica",
		"password", "password1", "princess", "qwertyuiop", "starwars", "sunshine",
		"superman", "trustno1", "welcome1", "whatever",
	}
)

func init() {
	sort.Strings(commonPasswords)
}

var errPasswordPolicy = errors.New("password rejected by policy")

func policyErr(text string) error {
	return core.NewValidationError(errPasswordPolicy, core.FieldError{Field: "password", Error: text})
}

// ValidatePassword applies the local-credential password policy:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no account attrs similarity
// - no common password
func ValidatePassword(pwd string, attrs ...string) error {
	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return policyErr(pwdMinLenText)
	}
	for _, char := range []rune(pwd) {
		if unicode.IsSpace(char) {
			return policyErr(pwdNoSpaceText)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return policyErr(pwdNotAllNumText)
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		return policyErr(pwdComplexityText)
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	for _, attr := range attrs {
		if getRatio(strings.ToLower(pwd), strings.ToLower(attr)) >= pwdMaxSim {
			return policyErr(pwdAttrSimText)
		}
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if match := commonPasswords[idx]; lpwd == match {
			return policyErr(pwdNoCommonText)
		}
	}
	return nil
}

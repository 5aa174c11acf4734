package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation rule patterns
var (
	// Usernames: letters, digits, dot, underscore, hyphen
	UsernamePattern = `^[A-Za-z0-9._\-]+$`

	UsernameMinLength = 3
	UsernameMaxLength = 50

	PasswordMinLength = 8
	PasswordMaxLength = 72 // bcrypt ignores anything past 72 bytes

	TitleMaxLength       = 200
	DescriptionMaxLength = 5000
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Username *regexp.Regexp
}{
	Username: regexp.MustCompile(UsernamePattern),
}

// StringValidation describes the constraints for a single string field.
type StringValidation struct {
	Field    string
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(field, value string) *StringValidation {
	return &StringValidation{
		Field:    field,
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate returns a message describing the first violated rule, or "" when valid.
func (v *StringValidation) Validate() string {
	value := strings.TrimSpace(v.Value)
	if value == "" {
		if v.Required {
			return fmt.Sprintf("%s is required", v.Field)
		}
		return ""
	}

	length := len([]rune(value))
	if v.MinLen > 0 && length < v.MinLen {
		return fmt.Sprintf("%s must be at least %d characters", v.Field, v.MinLen)
	}
	if v.MaxLen > 0 && length > v.MaxLen {
		return fmt.Sprintf("%s must be at most %d characters", v.Field, v.MaxLen)
	}
	if v.Pattern != nil && !v.Pattern.MatchString(value) {
		return fmt.Sprintf("%s has an invalid format", v.Field)
	}
	return ""
}

// Collect runs the validations and returns field -> message for every failure.
func Collect(validations ...*StringValidation) map[string]interface{} {
	var failures map[string]interface{}
	for _, v := range validations {
		if msg := v.Validate(); msg != "" {
			if failures == nil {
				failures = make(map[string]interface{})
			}
			failures[v.Field] = msg
		}
	}
	return failures
}

// Username returns the rule set for a username.
func Username(value string) *StringValidation {
	return NewStringValidation("username", value).
		WithMinLength(UsernameMinLength).
		WithMaxLength(UsernameMaxLength).
		WithPattern(CompiledPatterns.Username)
}

// PasswordStrength checks the password contains at least one letter and one digit.
func PasswordStrength(password string) string {
	if len(password) < PasswordMinLength {
		return fmt.Sprintf("password must be at least %d characters", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Sprintf("password must be at most %d bytes", PasswordMaxLength)
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one digit"
	}
	return ""
}

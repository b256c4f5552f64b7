package auth

import (
	"errors"
	"strings"
	"unicode"
)

// PasswordValidationError lists every rule a rejected password broke.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// passwordRules are evaluated independently so one weak password
// reports all of its problems at once.
var passwordRules = []struct {
	message string
	ok      func(string) bool
}{
	{"password must be at least 12 characters", func(p string) bool { return len(p) >= 12 }},
	{"password must contain at least 1 uppercase letter", containsClass(unicode.IsUpper)},
	{"password must contain at least 1 lowercase letter", containsClass(unicode.IsLower)},
	{"password must contain at least 1 digit", containsClass(unicode.IsDigit)},
	{"password must contain at least 1 special character (!@#$%^&*...)", containsClass(isSpecial)},
}

func containsClass(match func(rune) bool) func(string) bool {
	return func(p string) bool {
		for _, r := range p {
			if match(r) {
				return true
			}
		}
		return false
	}
}

func isSpecial(r rune) bool {
	return strings.ContainsRune("!@#$%^&*()-_=+[]{}|;:',.<>?/`~\"\\", r)
}

// ValidatePassword checks a password against every complexity rule.
func ValidatePassword(password string) error {
	var messages []string
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			messages = append(messages, rule.message)
		}
	}
	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}
	return nil
}

// ValidatePasswordOrError flattens rule failures to a single plain
// error carrying the first broken rule, for API responses.
func ValidatePasswordOrError(password string) error {
	err := ValidatePassword(password)
	var validErr *PasswordValidationError
	if errors.As(err, &validErr) {
		return errors.New(validErr.Messages[0])
	}
	return err
}

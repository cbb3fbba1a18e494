package auth

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 10
	// MaxPasswordLength matches the bcrypt input limit; bcrypt silently
	// ignores bytes past 72, so longer passwords are rejected instead.
	MaxPasswordLength = 72
)

// PasswordValidationError contains details about password validation failure.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// ValidatePassword checks a password against the account policy:
// 10 to 72 bytes, containing at least one letter and one digit. An
// all-numeric or all-alphabetic password is rejected regardless of
// length.
func ValidatePassword(password string) error {
	var messages []string

	if len(password) < MinPasswordLength {
		messages = append(messages, "password must be at least 10 characters")
	}
	if len(password) > MaxPasswordLength {
		messages = append(messages, "password must be at most 72 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter {
		messages = append(messages, "password must contain at least 1 letter")
	}
	if !hasDigit {
		messages = append(messages, "password must contain at least 1 digit")
	}

	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}

	return nil
}

// ValidatePasswordOrError returns an error suitable for API responses.
func ValidatePasswordOrError(password string) error {
	if err := ValidatePassword(password); err != nil {
		var validErr *PasswordValidationError
		if errors.As(err, &validErr) {
			return errors.New(validErr.Messages[0]) // Return first message for API
		}
		return err
	}
	return nil
}

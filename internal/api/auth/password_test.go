package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{"letters and digits", "watchlist2024", true},
		{"exactly 10", "abcdefgh12", true},
		{"mixed case and symbols", "Tr@ding-Desk-7", true},
		{"exactly 72", strings.Repeat("a1", 36), true},

		{"exactly 9", "abcdefg12", false},
		{"empty", "", false},
		{"all digits", "1234567890123", false},
		{"all letters", "abcdefghijklm", false},
		{"symbols and digits only", "!@#$%^12345", false},
		{"73 bytes", strings.Repeat("a1", 36) + "x", false},
		{"spaces only", "            ", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			got := err == nil
			if got != tc.wantOK {
				t.Errorf("ValidatePassword(%q) error=%v, want valid=%v", tc.password, err, tc.wantOK)
			}
		})
	}
}

func TestValidatePasswordCollectsAllFailures(t *testing.T) {
	err := ValidatePassword("!!!")

	var validErr *PasswordValidationError
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.As(err, &validErr) {
		t.Fatalf("error type = %T, want *PasswordValidationError", err)
	}
	// too short, no letter, no digit
	if len(validErr.Messages) != 3 {
		t.Errorf("got %d messages (%v), want 3", len(validErr.Messages), validErr.Messages)
	}
}

func TestValidatePasswordOrError(t *testing.T) {
	if err := ValidatePasswordOrError("watchlist2024"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := ValidatePasswordOrError("short1")
	if err == nil {
		t.Fatal("expected error for short password")
	}
	// The API gets a single plain message, not the joined list.
	if strings.Contains(err.Error(), ";") {
		t.Errorf("API error should carry one message, got %q", err.Error())
	}
}

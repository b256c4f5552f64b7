package auth

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Str0ng&Secure!", true},
		{"too short", "Sh0rt!pw", false},
		{"no uppercase", "all-l0wercase-here!", false},
		{"no lowercase", "ALL-UPPER-C4SE!!", false},
		{"no digit", "NoDigitsAtAll!!!", false},
		{"no special", "NoSpecials12345A", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidatePassword_CollectsAllFailures(t *testing.T) {
	err := ValidatePassword("short")

	var validErr *PasswordValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	// length, uppercase, digit, special all fail
	if len(validErr.Messages) != 4 {
		t.Errorf("expected 4 messages, got %d: %v", len(validErr.Messages), validErr.Messages)
	}
}

func TestValidatePasswordOrError(t *testing.T) {
	if err := ValidatePasswordOrError("Str0ng&Secure!"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	err := ValidatePasswordOrError("weak")
	if err == nil {
		t.Fatal("expected error")
	}
	var validErr *PasswordValidationError
	if errors.As(err, &validErr) {
		t.Error("expected a flattened error, not PasswordValidationError")
	}
}

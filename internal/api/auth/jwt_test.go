package auth

import (
	"testing"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-32-bytes-long!!"), 15*time.Minute)

	user := &models.User{
		ID:       "user-123",
		Username: "analyst",
		Role:     models.RoleOperator,
	}

	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
	if claims.Role != user.Role {
		t.Errorf("Role = %q, want %q", claims.Role, user.Role)
	}
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-32-bytes-long!!"), 15*time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"wrong-segments", "a.b"},
		{"invalid-signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1aWQiOiJ0ZXN0In0.invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tc.token); err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestJWTService_DifferentSecret(t *testing.T) {
	svc1 := NewJWTService([]byte("secret-one-32-bytes-long!!!!!!!"), 15*time.Minute)
	svc2 := NewJWTService([]byte("secret-two-32-bytes-long!!!!!!!"), 15*time.Minute)

	token, err := svc1.GenerateToken(&models.User{ID: "u1", Username: "analyst", Role: models.RoleViewer})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("expected error validating token with different secret")
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-32-bytes-long!!"), time.Millisecond)

	token, err := svc.GenerateToken(&models.User{ID: "u1", Username: "analyst", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTService_TTLSeconds(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key-32-bytes-long!!"), 15*time.Minute)
	if got := svc.TTLSeconds(); got != 900 {
		t.Errorf("TTLSeconds() = %d, want 900", got)
	}
}

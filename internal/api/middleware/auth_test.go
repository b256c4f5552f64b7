package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/api/auth"
	"github.com/good-yellow-bee/alertdesk/internal/models"
)

func TestJWTAuth(t *testing.T) {
	svc := auth.NewJWTService([]byte("test-secret-key-32-bytes-long!!"), 15*time.Minute)

	user := &models.User{ID: "u1", Username: "analyst", Role: models.RoleOperator}
	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	var gotUserID string
	var gotRole models.Role
	handler := JWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotRole = GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid bearer token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"malformed token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	if gotUserID != "u1" {
		t.Errorf("user id in context = %q, want u1", gotUserID)
	}
	if gotRole != models.RoleOperator {
		t.Errorf("role in context = %q, want operator", gotRole)
	}
}

func TestGetHelpersEmptyContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := r.Context()

	if GetUserID(ctx) != "" {
		t.Error("expected empty user id")
	}
	if GetUsername(ctx) != "" {
		t.Error("expected empty username")
	}
	if GetRole(ctx) != "" {
		t.Error("expected empty role")
	}
	if GetClaims(ctx) != nil {
		t.Error("expected nil claims")
	}
}

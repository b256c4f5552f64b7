package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

func requestWithIdentity(userID string, role models.Role) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	return r.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       models.Role
		allowed    []models.Role
		wantStatus int
	}{
		{"matching role", models.RoleOperator, []models.Role{models.RoleOperator}, http.StatusOK},
		{"admin bypasses", models.RoleAdmin, []models.Role{models.RoleOperator}, http.StatusOK},
		{"wrong role", models.RoleViewer, []models.Role{models.RoleOperator}, http.StatusForbidden},
		{"no role in context", "", []models.Role{models.RoleOperator}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.allowed...)(okHandler())
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, requestWithIdentity("u1", tt.role))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireCanWrite(t *testing.T) {
	tests := []struct {
		role       models.Role
		wantStatus int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleOperator, http.StatusOK},
		{models.RoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			handler := RequireCanWrite(okHandler())
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, requestWithIdentity("u1", tt.role))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAdminOrSelf(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		role       models.Role
		resourceID string
		wantStatus int
	}{
		{"admin accesses anyone", "u1", models.RoleAdmin, "u2", http.StatusOK},
		{"self access", "u1", models.RoleViewer, "u1", http.StatusOK},
		{"other user denied", "u1", models.RoleViewer, "u2", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := requestWithIdentity(tt.userID, tt.role)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.resourceID)
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

			handler := RequireAdminOrSelf(okHandler())
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

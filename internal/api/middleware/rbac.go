package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// RequireRole returns middleware that requires specific roles.
func RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetRole(r.Context())
			if userRole == "" {
				jsonForbidden(w)
				return
			}

			for _, role := range allowedRoles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Admin always has access
			if userRole == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}

			jsonForbidden(w)
		})
	}
}

// RequireAdmin is shorthand for RequireRole(RoleAdmin).
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)(next)
}

// RequireCanWrite allows access to admin and operator roles.
func RequireCanWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userRole := GetRole(r.Context())

		if userRole == models.RoleAdmin || userRole == models.RoleOperator {
			next.ServeHTTP(w, r)
			return
		}

		jsonForbidden(w)
	})
}

// RequireAdminOrSelf allows access if user is admin or accessing their own resource.
// Expects {id} URL parameter.
func RequireAdminOrSelf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := GetUserID(r.Context())
		userRole := GetRole(r.Context())

		if userRole == models.RoleAdmin {
			next.ServeHTTP(w, r)
			return
		}

		resourceID := chi.URLParam(r, "id")
		if resourceID != "" && resourceID == userID {
			next.ServeHTTP(w, r)
			return
		}

		jsonForbidden(w)
	})
}

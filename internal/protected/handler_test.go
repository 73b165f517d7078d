// AngelaMos | 2026
// handler_test.go

package protected

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/quizforge/internal/middleware"
)

// principalFromHeader authenticates requests carrying X-Role and treats
// X-Verified: yes as a verified email.
func principalFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role")
		if role == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		p := &middleware.Principal{
			ID:         "u-" + role,
			Username:   role + "_name",
			Role:       role,
			IsActive:   true,
			IsVerified: r.Header.Get("X-Verified") == "yes",
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), p, nil)))
	})
}

// optionalFromHeader attaches a principal only when X-Role is present.
func optionalFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Role") == "" {
			next.ServeHTTP(w, r)
			return
		}
		principalFromHeader(next).ServeHTTP(w, r)
	})
}

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	NewHandler().RegisterRoutes(r, principalFromHeader, optionalFromHeader)
	return r
}

func get(r http.Handler, path, role string, verified bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	if verified {
		req.Header.Set("X-Verified", "yes")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoute(t *testing.T) {
	rec := get(newRouter(), "/protected/public", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"This is a public route","access":"public"}`, rec.Body.String())
}

func TestPublicRouteEchoesSignedInCaller(t *testing.T) {
	rec := get(newRouter(), "/protected/public", middleware.RoleUser, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "public", resp.Access)
	assert.Equal(t, "u-user", resp.UserID)
	assert.Equal(t, "user_name", resp.Username)
	assert.Equal(t, middleware.RoleUser, resp.Role)
}

func TestRoleGates(t *testing.T) {
	r := newRouter()

	tests := []struct {
		path     string
		role     string
		verified bool
		want     int
	}{
		{"/protected/authenticated", "", false, http.StatusUnauthorized},
		{"/protected/authenticated", middleware.RoleUser, false, http.StatusOK},
		{"/protected/verified", middleware.RoleUser, false, http.StatusForbidden},
		{"/protected/verified", middleware.RoleUser, true, http.StatusOK},
		{"/protected/user", middleware.RoleUser, false, http.StatusOK},
		{"/protected/user", middleware.RoleAdmin, false, http.StatusOK},
		{"/protected/moderator", middleware.RoleUser, false, http.StatusForbidden},
		{"/protected/moderator", middleware.RoleModerator, false, http.StatusOK},
		{"/protected/moderator", middleware.RoleAdmin, false, http.StatusOK},
		{"/protected/admin", middleware.RoleModerator, false, http.StatusForbidden},
		{"/protected/admin", middleware.RoleAdmin, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, get(r, tt.path, tt.role, tt.verified).Code)
		})
	}
}

func TestAccessResponseCarriesPrincipal(t *testing.T) {
	rec := get(newRouter(), "/protected/moderator", middleware.RoleModerator, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "This is a moderator route", resp.Message)
	assert.Equal(t, "moderator", resp.Access)
	assert.Equal(t, "u-moderator", resp.UserID)
	assert.Equal(t, "moderator_name", resp.Username)
	assert.Equal(t, middleware.RoleModerator, resp.Role)
}

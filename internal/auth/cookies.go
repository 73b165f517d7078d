// AngelaMos | 2026
// cookies.go

package auth

import (
	"net/http"
	"time"

	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/middleware"
)

const (
	RefreshTokenCookie = "refresh_token"
	CSRFTokenCookie    = "csrf_token"
	CSRFHeader         = "X-CSRF-Token"
)

type cookieWriter struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (c cookieWriter) set(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: httpOnly,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieWriter) clear(w http.ResponseWriter, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.cfg.Domain,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeSession sets the access and CSRF cookies, plus the refresh cookie
// when the session carries one.
func (c cookieWriter) writeSession(w http.ResponseWriter, s *Session) {
	c.set(w, middleware.AccessTokenCookie, s.AccessToken, c.accessTTL, true)
	if s.RefreshToken != "" {
		c.set(w, RefreshTokenCookie, s.RefreshToken, c.refreshTTL, true)
	}
	c.set(w, CSRFTokenCookie, s.CSRFToken, c.accessTTL, false)
}

func (c cookieWriter) clearSession(w http.ResponseWriter) {
	c.clear(w, middleware.AccessTokenCookie, true)
	c.clear(w, RefreshTokenCookie, true)
	c.clear(w, CSRFTokenCookie, false)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

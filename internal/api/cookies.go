package api

import (
	"net/http"
	"strings"
	"time"
)

const authCookieName = "n_auth_token"

// isLocalOrigin reports whether the request comes from a developer front end.
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
}

// authCookie carries the JWT for browser clients. Cross-site production
// front ends need SameSite=None, which browsers only accept over HTTPS.
func authCookie(r *http.Request, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
	if isLocalOrigin(r) {
		c.Secure = false
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

func expiredAuthCookie(r *http.Request) *http.Cookie {
	c := authCookie(r, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

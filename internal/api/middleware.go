package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/novostroy/novostroy-api/internal/auth"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/validation"
)

type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

// CookieToHeader copies the auth cookie into the Authorization header when
// the client did not send a bearer token itself.
func CookieToHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			if c, err := r.Cookie(authCookieName); err == nil && c.Value != "" {
				r.Header.Set("Authorization", "Bearer "+c.Value)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func withToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenKey, raw)
}

func tokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(tokenKey).(string)
	return raw
}

func userFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func (api *Api) unauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, msgUnauthenticated,
		validation.Errors{"auth": {msgUnauthenticated}})
}

// RequireBearer only checks that a token is present; the handler decides whether it is usable.
func (api *Api) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			api.unauthenticated(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withToken(r.Context(), raw)))
	})
}

// Authenticate resolves the bearer token to a user and stores both in the request context.
func (api *Api) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			api.unauthenticated(w)
			return
		}

		user, err := api.auth.Authenticate(r.Context(), raw)
		if err != nil {
			if auth.IsTokenError(err) {
				api.log.Debug("rejected bearer token", "error", err, "path", r.URL.Path)
				api.unauthenticated(w)
				return
			}
			api.log.Error("failed to load authenticated user", "error", err, "path", r.URL.Path)
			writeError(w, http.StatusInternalServerError, msgUserFetchFailed, general(msgGenericError))
			return
		}

		ctx := context.WithValue(withToken(r.Context(), raw), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

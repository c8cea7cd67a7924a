package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieToHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"CookieOnly", "", "abc", "Bearer abc"},
		{"HeaderWins", "Bearer from-header", "abc", "Bearer from-header"},
		{"NonBearerHeaderReplaced", "Basic dXNlcjpwYXNz", "abc", "Bearer abc"},
		{"EmptyCookie", "", "", ""},
		{"Neither", "", "-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := CookieToHeader(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "-" {
				req.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.cookie})
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Bearer  tok ")
	assert.Equal(t, "tok", bearerToken(req))

	req.Header.Set("Authorization", "bearer tok")
	assert.Empty(t, bearerToken(req))
}

func TestExpiredAuthCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	c := expiredAuthCookie(req)
	assert.Equal(t, authCookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)

	req.Header.Set("Origin", "http://127.0.0.1:5174")
	c = expiredAuthCookie(req)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestReadInput(t *testing.T) {
	t.Run("JSONScalars", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"x","n":12,"b":true,"z":null,"arr":[1]}`))
		req.Header.Set("Content-Type", "application/json")
		in, err := readInput(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "x", in.get("a"))
		assert.Equal(t, "12", in.get("n"))
		assert.Equal(t, "true", in.get("b"))
		assert.Nil(t, in.optional("z"))
		assert.True(t, in.nonString["arr"])
	})

	t.Run("EmptyBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		in, err := readInput(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Empty(t, in.values)
	})

	t.Run("NotAnObject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`["x"]`))
		_, err := readInput(httptest.NewRecorder(), req)
		assert.ErrorIs(t, err, errMalformedBody)
	})

	t.Run("Form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("email=a%40b.ru&password=secret"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		in, err := readInput(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "a@b.ru", in.get("email"))
		assert.Equal(t, "secret", in.get("password"))
	})

	t.Run("TooLarge", func(t *testing.T) {
		body := `{"a":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		_, err := readInput(httptest.NewRecorder(), req)
		assert.ErrorIs(t, err, errMalformedBody)
	})
}

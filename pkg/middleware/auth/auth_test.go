package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shopsana/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

func newServer() *echo.Echo {
	m := NewJWTMiddleware(secret)
	e := echo.New()
	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}
	e.GET("/me", ok, m.RequireAuth)
	e.GET("/admin", ok, m.RequireAdmin)
	return e
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(userID, role, time.Now().Add(time.Minute), secret)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	e := newServer()
	userID := uuid.NewString()

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{name: "no token", setup: func(r *http.Request) {}, status: http.StatusUnauthorized},
		{name: "garbage token", setup: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
		}, status: http.StatusUnauthorized},
		{name: "bearer header", setup: func(r *http.Request) {
			r.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, userID, "user"))
		}, status: http.StatusOK},
		{name: "cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: token(t, userID, "user")})
		}, status: http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		tt.setup(req)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.name)
		if tt.status == http.StatusOK {
			assert.Equal(t, userID, rec.Body.String(), tt.name)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	e := newServer()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, uuid.NewString(), "user"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, uuid.NewString(), tokens.RoleAdmin))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movietix/cinema-booking-api/internal/utils"
)

func runJWT(t *testing.T, secret, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, JWTAuth(secret)(next)(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken("sekret", 42, "USER", 5)
	require.NoError(t, err)

	rec, c := runJWT(t, "sekret", "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, c.Get("user_id"))
	assert.Equal(t, "USER", c.Get("role"))
}

func TestJWTAuthRejects(t *testing.T) {
	tok, err := utils.NewAccessToken("sekret", 42, "USER", 5)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + tok.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := runJWT(t, "other-secret", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

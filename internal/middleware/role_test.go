package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		role     interface{}
		allowed  []string
		wantCode int
	}{
		{"admin allowed", "ADMIN", []string{"ADMIN"}, http.StatusOK},
		{"user allowed on shared route", "USER", []string{"USER", "ADMIN"}, http.StatusOK},
		{"user blocked from admin route", "USER", []string{"ADMIN"}, http.StatusForbidden},
		{"missing role", nil, []string{"ADMIN"}, http.StatusForbidden},
		{"wrong type", 42, []string{"ADMIN"}, http.StatusForbidden},
		{"unknown role", "OWNER", []string{"USER", "ADMIN"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.role != nil {
				c.Set("role", tt.role)
			}
			next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
			err := RequireRole(tt.allowed...)(next)(c)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFunc func(ctx context.Context, sessionToken, bearer string) (*models.User, error)

func (f authFunc) Authenticate(ctx context.Context, sessionToken, bearer string) (*models.User, error) {
	return f(ctx, sessionToken, bearer)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, CurrentUser(c).ID)
}

func TestAuthenticate(t *testing.T) {
	var gotSession, gotBearer string
	a := authFunc(func(_ context.Context, s, b string) (*models.User, error) {
		gotSession, gotBearer = s, b
		if s == "" && b == "" {
			return nil, domain.NewUnauthorizedError("")
		}
		if b == "boom" {
			return nil, errors.New("db down")
		}
		return &models.User{ID: "user_1", Role: models.RoleAgente}, nil
	})
	e := echo.New()
	h := Authenticate(a)(okHandler)

	t.Run("Success - cookie and bearer forwarded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess_1"})
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()

		require.NoError(t, h(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user_1", rec.Body.String())
		assert.Equal(t, "sess_1", gotSession)
		assert.Equal(t, "tok", gotBearer)
	})

	t.Run("Error - nothing supplied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Error - backend failure is a 500", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer boom")
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
		"Bearer  abc": "abc",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()
	h := RequireRoles(models.RoleAdmin, models.RoleGerente)(okHandler)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"Success - admin", &models.User{ID: "u", Role: models.RoleAdmin}, http.StatusOK},
		{"Success - gerente", &models.User{ID: "u", Role: models.RoleGerente}, http.StatusOK},
		{"Error - supervisor", &models.User{ID: "u", Role: models.RoleSupervisor}, http.StatusForbidden},
		{"Error - anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if tt.user != nil {
				SetUser(c, tt.user)
			}
			require.NoError(t, h(c))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

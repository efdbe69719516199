// Package middleware authenticates API callers and gates routes by role.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// SessionCookie is the name of the cookie carrying a session token.
const SessionCookie = "session_token"

const userKey = "user"

// Authenticator resolves the caller from a session token or a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken, bearer string) (*models.User, error)
}

// Authenticate stores the resolved user in the echo context and rejects
// the request with 401 when nothing resolves.
func Authenticate(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionToken string
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				sessionToken = cookie.Value
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := a.Authenticate(ctx, sessionToken, BearerToken(c.Request()))
			if err != nil {
				if domain.IsUnauthorized(err) {
					return apierrors.UnauthorizedError(c, domain.Message(err))
				}
				return apierrors.InternalError(c, err)
			}

			c.Set(userKey, u)
			return next(c)
		}
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireRoles rejects callers whose role is not listed. It must run after
// Authenticate.
func RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return apierrors.UnauthorizedError(c, "")
			}
			for _, r := range roles {
				if u.Role == r {
					return next(c)
				}
			}
			return apierrors.ForbiddenError(c, "")
		}
	}
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

// SetUser stores u as the authenticated user. Used by tests.
func SetUser(c echo.Context, u *models.User) {
	c.Set(userKey, u)
}

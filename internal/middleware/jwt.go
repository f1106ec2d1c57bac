// Package middleware holds the echo middleware shared by the route groups.
package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/httpx"
	"github.com/iliyamo/fullfuel-tv/internal/model"
)

// Authenticator resolves an Authorization header to a user.
// *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (model.User, error)
	RequireAdmin(ctx context.Context, authorization string) (model.User, error)
}

// RequireUser returns an Echo middleware that verifies the bearer token,
// loads its user and stores it in the context (see UserFrom).  Missing or
// invalid tokens get 401; a token for a deleted user gets 404.
func RequireUser(a Authenticator) echo.MiddlewareFunc {
	return gate(a.Authenticate)
}

func gate(check func(context.Context, string) (model.User, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := check(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return httpx.Error(c, err)
			}
			setUser(c, u)
			return next(c)
		}
	}
}

package middleware

// identity.go holds the context helpers shared by the auth gates and handlers.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/model"
)

const userKey = "user"

func setUser(c echo.Context, u model.User) {
	c.Set(userKey, u)
}

// UserFrom returns the user stored by RequireUser or RequireAdmin.
func UserFrom(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}

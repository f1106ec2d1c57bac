package middleware

import (
	"github.com/labstack/echo/v4"
)

// RequireAdmin is the one authorization gate for admin routes: verify the
// bearer token, load the user, require the admin role.  Non-admins get 403.
// The loaded user is available to handlers through UserFrom.
func RequireAdmin(a Authenticator) echo.MiddlewareFunc {
	return gate(a.RequireAdmin)
}

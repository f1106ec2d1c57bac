// Package router registers the API routes on an echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/handler"
	"github.com/iliyamo/fullfuel-tv/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// health check and, when metrics is non-nil, the Prometheus scrape handler.
func RegisterRoutes(e *echo.Echo, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the /api/auth endpoints.  The whole group runs
// behind limiter; /me reads the bearer token itself so that its error
// messages are the auth service's own.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me)
	g.POST("/google-login", a.GoogleLogin)
	g.POST("/register/google", a.GoogleRegister)
}

// RegisterUsers registers the profile endpoints.  Reads need a session;
// role changes and the full listing need an admin.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, authn middleware.Authenticator) {
	g := e.Group("/api/users")
	g.GET("", u.List, middleware.RequireAdmin(authn))
	g.GET("/:id", u.Get, middleware.RequireUser(authn))
	g.PUT("/:id/profile", u.UpdateProfile, middleware.RequireUser(authn))
	g.PUT("/:id/role", u.UpdateRole, middleware.RequireAdmin(authn))
}

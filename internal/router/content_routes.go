package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/handler"
	"github.com/iliyamo/fullfuel-tv/internal/middleware"
	"github.com/iliyamo/fullfuel-tv/internal/model"
)

// RegisterContent registers one route group per catalog section under
// /api/<collection>.  Reads are public and pass through cache; writes need
// an admin.
func RegisterContent(e *echo.Echo, h *handler.ContentHandler, authn middleware.Authenticator, cache echo.MiddlewareFunc) {
	admin := middleware.RequireAdmin(authn)
	for _, k := range model.Kinds {
		g := e.Group("/api/" + k.Collection())

		// ---- Public ----
		g.GET("", h.List(k), cache)
		g.GET("/:id", h.Get(k), cache)

		// ---- Admin ----
		g.POST("", h.Create(k), admin)
		g.PUT("/:id", h.Update(k), admin)
		g.DELETE("/:id", h.Delete(k), admin)
	}
}

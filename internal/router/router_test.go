package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/handler"
	"github.com/iliyamo/fullfuel-tv/internal/model"
	"github.com/iliyamo/fullfuel-tv/internal/service"
)

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (model.User, error) {
	return model.User{}, service.ErrMissingToken
}

func (denyAll) RequireAdmin(context.Context, string) (model.User, error) {
	return model.User{}, service.ErrMissingToken
}

func pass(next echo.HandlerFunc) echo.HandlerFunc { return next }

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, http.NotFoundHandler())
	RegisterAuth(e, handler.NewAuthHandler(nil), pass)
	RegisterUsers(e, handler.NewUserHandler(nil, nil, time.Second), denyAll{})
	RegisterContent(e, handler.NewContentHandler(nil, nil, time.Second), denyAll{}, pass)

	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"POST /api/auth/google-login",
		"POST /api/auth/register/google",
		"GET /api/users",
		"GET /api/users/:id",
		"PUT /api/users/:id/profile",
		"PUT /api/users/:id/role",
		"GET /api/videos",
		"GET /api/mixes/:id",
		"POST /api/events",
		"PUT /api/galleries/:id",
		"DELETE /api/videos/:id",
	} {
		if !have[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	e := echo.New()
	RegisterUsers(e, handler.NewUserHandler(nil, nil, time.Second), denyAll{})
	RegisterContent(e, handler.NewContentHandler(nil, nil, time.Second), denyAll{}, pass)

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/1"},
		{http.MethodPost, "/api/videos"},
		{http.MethodDelete, "/api/events/abc"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", r.method, r.path, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

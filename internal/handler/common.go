package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/httpx"
	"github.com/iliyamo/fullfuel-tv/internal/repository"
	"github.com/iliyamo/fullfuel-tv/internal/service"
)

const defaultStoreTimeout = 5 * time.Second

// storeError answers a repository failure.  notFound is the message for a
// missing row; driver errors are logged and hidden behind "Server error".
func storeError(c echo.Context, log *slog.Logger, op string, err error, notFound string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httpx.Message(c, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrUsernameExists):
		return httpx.Error(c, service.ErrDuplicateUsername)
	case errors.Is(err, repository.ErrEmailExists):
		return httpx.Error(c, service.ErrDuplicateEmail)
	case errors.Is(err, context.DeadlineExceeded):
		return httpx.Error(c, service.ErrTimeout)
	}
	logger(log).Error("store failure", "op", op, "error", err)
	return httpx.Error(c, service.ErrStoreFailure)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// storeCtx bounds one repository round-trip.
func storeCtx(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultStoreTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// paramID parses a numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// page reads limit/offset query parameters.  limit defaults to 20 and is
// capped at 100.
func page(c echo.Context) (limit, offset int) {
	limit, offset = 20, 0
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = min(n, 100)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

// Package httpx maps service errors onto HTTP responses.
package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/service"
)

var statusByKind = map[service.Kind]int{
	service.KindMissingField:          http.StatusBadRequest,
	service.KindInvalidInput:          http.StatusBadRequest,
	service.KindDuplicateEmail:        http.StatusBadRequest,
	service.KindDuplicateUsername:     http.StatusBadRequest,
	service.KindMissingAssertion:      http.StatusBadRequest,
	service.KindInvalidCredentials:    http.StatusUnauthorized,
	service.KindUnsupportedAuthMethod: http.StatusUnauthorized,
	service.KindInvalidAssertion:      http.StatusUnauthorized,
	service.KindMissingToken:          http.StatusUnauthorized,
	service.KindInvalidToken:          http.StatusUnauthorized,
	service.KindForbidden:             http.StatusForbidden,
	service.KindNotFound:              http.StatusNotFound,
	service.KindTimeout:               http.StatusGatewayTimeout,
	service.KindStoreFailure:          http.StatusInternalServerError,
}

// Status returns the HTTP status for err.  Unclassified errors are 500.
func Status(err error) int {
	if s, ok := statusByKind[service.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error writes {"error": message} with the status matching err.  Only the
// client-safe message is written; causes stay in the logs.
func Error(c echo.Context, err error) error {
	return c.JSON(Status(err), echo.Map{"error": service.MessageOf(err)})
}

// Message writes {"error": msg} with the given status.
func Message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

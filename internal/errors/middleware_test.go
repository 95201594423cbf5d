package errors

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invokeMiddleware(t *testing.T, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wrapped := Middleware()(handler)
	return rec, wrapped(c)
}

func TestMiddlewareWithStructuredError(t *testing.T) {
	rec, err := invokeMiddleware(t, func(c echo.Context) error {
		return NotFoundError("entry not found").WithField("key", "league/42/standings")
	})

	require.NoError(t, err, "Structured errors are rendered, not propagated")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "entry not found")
	assert.Contains(t, rec.Body.String(), "league/42/standings")
}

func TestMiddlewareWithStandardError(t *testing.T) {
	rec, err := invokeMiddleware(t, func(c echo.Context) error {
		return fmt.Errorf("something broke")
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// The original message stays out of the response body.
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "something broke")
}

func TestMiddlewareWithNoError(t *testing.T) {
	rec, err := invokeMiddleware(t, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewarePassesThroughEchoHTTPError(t *testing.T) {
	_, err := invokeMiddleware(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "nope")
	})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr, "Echo errors keep flowing to Echo's own handler")
	assert.Equal(t, http.StatusMethodNotAllowed, httpErr.Code)
}

func TestWrapHTTPError(t *testing.T) {
	cases := []struct {
		code     int
		expected ErrorType
	}{
		{http.StatusBadRequest, TypeValidation},
		{http.StatusNotFound, TypeNotFound},
		{http.StatusBadGateway, TypeExternal},
		{http.StatusServiceUnavailable, TypeExternal},
		{http.StatusTeapot, TypeInternal},
	}

	for _, tc := range cases {
		wrapped := WrapHTTPError(echo.NewHTTPError(tc.code, "message"))
		assert.Equal(t, tc.expected, wrapped.Type, "code %d", tc.code)
		assert.Equal(t, "message", wrapped.Message)
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := fmt.Errorf("root")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "boom")
	httpErr.Internal = cause

	wrapped := WrapHTTPError(httpErr)
	assert.Equal(t, cause, wrapped.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	wrapped := WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, 42))
	assert.Equal(t, "internal server error", wrapped.Message)
}

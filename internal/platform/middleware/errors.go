package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorHandler renders errors as {"error": msg}. Causes of 5xx responses are
// logged and never returned to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = apperr.ToHTTP(err)
		}

		msg := fmt.Sprint(he.Message)
		switch {
		case he.Code == http.StatusNotFound && errors.Is(err, echo.ErrNotFound):
			msg = "route not found"
		case he.Code == http.StatusMethodNotAllowed:
			msg = "method not allowed"
		case he.Code >= 500:
			cause := err
			if he.Internal != nil {
				cause = he.Internal
			}
			logger.Error().Err(cause).
				Str("request_id", GetRequestID(c)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", he.Code).
				Msg("request failed")
			msg = "internal server error"
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, ErrorBody{Error: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", GetRequestID(c)).Msg("write error response")
		}
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const genericErrorMessage = "Oh no, something went wrong!"

// NewHTTPErrorHandler returns the terminal error responder. Every error
// that escapes a handler lands here: the status defaults to 500 and the
// message to a generic notice, then the error page is rendered. Unmatched
// routes arrive as the framework's 404.
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := genericErrorMessage
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok && m != "" {
				message = m
			}
		}
		if status == http.StatusNotFound && message == http.StatusText(http.StatusNotFound) {
			message = "Page Not Found"
		}
		if status >= http.StatusInternalServerError {
			message = genericErrorMessage
			c.Logger().Error(err)
		}

		data := map[string]any{"Status": status, "Message": message}
		if rerr := c.Render(status, "error.html", data); rerr != nil {
			_ = c.String(status, message)
		}
	}
}

package render

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorView is the data of the error page.
type ErrorView struct {
	Status  int
	Message string
	// Back is where the "return" link points.
	Back string
}

// ErrorHandler renders every unhandled error as the error page. Server
// errors get a generic message; the cause is only logged.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if he.Internal != nil {
				err = he.Internal
			}
			if status < 500 {
				message = fmt.Sprint(he.Message)
			}
		}

		if status >= 500 {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}

		view := ErrorView{Status: status, Message: message, Back: "/"}
		if rerr := c.Render(status, "error", view); rerr != nil {
			logger.Error().Err(rerr).Msg("render error page")
			_ = c.String(status, message)
		}
	}
}
